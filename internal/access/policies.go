package access

import (
	"github.com/noah-isme/edu-admin-api/internal/models"
	"github.com/noah-isme/edu-admin-api/internal/query"
)

// Chains evaluated on a student row.

func studentInSchoolOf(uid string) query.Predicate {
	return query.Through("admin", query.Eq("user_id", uid))
}

func studentAssignedTo(uid string) query.Predicate {
	return query.Path("teacher_links.teacher", query.Eq("user_id", uid))
}

func studentChildOf(uid string) query.Predicate {
	return query.Through("parent_links", query.Eq("parent_user_id", uid))
}

func studentSelf(uid string) query.Predicate {
	return query.Eq("user_id", uid)
}

// studentRules is the role table for the student entity itself.
func studentRules() map[models.UserRole]Rule {
	return map[models.UserRole]Rule{
		models.RoleAdmin:   studentInSchoolOf,
		models.RoleTeacher: studentAssignedTo,
		models.RoleTutor:   studentAssignedTo,
		models.RoleParent:  studentChildOf,
		models.RoleStudent: studentSelf,
	}
}

// via prefixes every rule with a hop through relation.
func via(relation string, rules map[models.UserRole]Rule) map[models.UserRole]Rule {
	out := make(map[models.UserRole]Rule, len(rules))
	for role, rule := range rules {
		rule := rule
		out[role] = func(uid string) query.Predicate { return query.Through(relation, rule(uid)) }
	}
	return out
}

func withTutors(rules map[models.UserRole]Rule) map[models.UserRole]Rule {
	if rule, ok := rules[models.RoleTeacher]; ok {
		rules[models.RoleTutor] = rule
	}
	return rules
}

func ownedByStudent(entity string) Policy {
	return Policy{Entity: entity, Rules: via("student", studentRules())}
}

// DefaultPolicies is the visibility table of every entity served by the API.
func DefaultPolicies() []Policy {
	enrollment := via("student", studentRules())
	enrollment[models.RoleAdmin] = func(uid string) query.Predicate { return query.Through("admin", query.Eq("user_id", uid)) }

	return []Policy{
		{
			Entity: models.EntityAdmin,
			Rules: map[models.UserRole]Rule{
				models.RoleAdmin: func(uid string) query.Predicate { return query.Eq("user_id", uid) },
			},
		},
		{
			Entity: models.EntityTeacher,
			Rules: withTutors(map[models.UserRole]Rule{
				models.RoleAdmin:   func(uid string) query.Predicate { return query.Through("admin", query.Eq("user_id", uid)) },
				models.RoleTeacher: func(uid string) query.Predicate { return query.Eq("user_id", uid) },
				models.RoleParent:  func(uid string) query.Predicate { return query.Path("student_links.student", studentChildOf(uid)) },
				models.RoleStudent: func(uid string) query.Predicate { return query.Path("student_links.student", studentSelf(uid)) },
			}),
		},
		{Entity: models.EntityStudent, Rules: studentRules()},
		{
			Entity: models.EntityTeacherStudent,
			Rules: withTutors(map[models.UserRole]Rule{
				models.RoleAdmin:   func(uid string) query.Predicate { return query.Path("teacher.admin", query.Eq("user_id", uid)) },
				models.RoleTeacher: func(uid string) query.Predicate { return query.Through("teacher", query.Eq("user_id", uid)) },
				models.RoleParent:  func(uid string) query.Predicate { return query.Through("student", studentChildOf(uid)) },
				models.RoleStudent: func(uid string) query.Predicate { return query.Through("student", studentSelf(uid)) },
			}),
		},
		{
			Entity: models.EntityParentStudent,
			Rules: withTutors(map[models.UserRole]Rule{
				models.RoleAdmin:   func(uid string) query.Predicate { return query.Through("student", studentInSchoolOf(uid)) },
				models.RoleTeacher: func(uid string) query.Predicate { return query.Through("student", studentAssignedTo(uid)) },
				models.RoleParent:  func(uid string) query.Predicate { return query.Eq("parent_user_id", uid) },
				models.RoleStudent: func(uid string) query.Predicate { return query.Through("student", studentSelf(uid)) },
			}),
		},
		{
			Entity: models.EntityCourse,
			Public: query.Eq("published", true),
			Rules: withTutors(map[models.UserRole]Rule{
				models.RoleAdmin:   func(uid string) query.Predicate { return query.Through("admin", query.Eq("user_id", uid)) },
				models.RoleTeacher: func(uid string) query.Predicate { return query.Through("teacher", query.Eq("user_id", uid)) },
			}),
		},
		{Entity: models.EntityEnrollment, Rules: enrollment},
		ownedByStudent(models.EntityAssessment),
		ownedByStudent(models.EntityGoal),
		ownedByStudent(models.EntityDiaryEntry),
		ownedByStudent(models.EntityReward),
		{
			Entity: models.EntityResource,
			Public: query.Eq("approved", true),
			Rules: map[models.UserRole]Rule{
				models.RoleAdmin: func(uid string) query.Predicate { return query.Through("admin", query.Eq("user_id", uid)) },
			},
		},
		{
			Entity: models.EntityFeature,
			Rules: map[models.UserRole]Rule{
				models.RoleAdmin:   func(string) query.Predicate { return nil },
				models.RoleTeacher: enabledFeatures,
				models.RoleTutor:   enabledFeatures,
				models.RoleParent:  enabledFeatures,
				models.RoleStudent: enabledFeatures,
			},
		},
	}
}

func enabledFeatures(string) query.Predicate { return query.Eq("enabled", true) }

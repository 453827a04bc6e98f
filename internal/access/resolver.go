package access

import (
	"fmt"

	"github.com/noah-isme/edu-admin-api/internal/models"
	"github.com/noah-isme/edu-admin-api/internal/query"
)

// Rule builds the visibility predicate of one role for a given user id. A nil
// result grants full visibility.
type Rule func(userID string) query.Predicate

// Policy lists the visibility rules of one entity.
type Policy struct {
	Entity string
	// Public is what callers without a matching rule may see. Nil means the
	// entity is not public.
	Public query.Predicate
	Rules  map[models.UserRole]Rule
}

// Resolver turns a caller identity into a visibility predicate per entity.
// Its policy table is fixed at construction.
type Resolver struct {
	policies map[string]Policy
}

// NewResolver builds a resolver from policies.
func NewResolver(policies ...Policy) (*Resolver, error) {
	r := &Resolver{policies: make(map[string]Policy, len(policies))}
	for _, p := range policies {
		if p.Entity == "" {
			return nil, fmt.Errorf("policy without entity")
		}
		if _, dup := r.policies[p.Entity]; dup {
			return nil, fmt.Errorf("policy for %q registered twice", p.Entity)
		}
		r.policies[p.Entity] = p
	}
	return r, nil
}

// NewDefaultResolver builds a resolver from DefaultPolicies.
func NewDefaultResolver() *Resolver {
	r, err := NewResolver(DefaultPolicies()...)
	if err != nil {
		panic(err)
	}
	return r
}

// Resolve returns the rows of entity visible to id. Nil means no restriction,
// query.False means nothing is visible.
func (r *Resolver) Resolve(entity string, id Identity) query.Predicate {
	if id.Role == models.RoleSuperUser {
		return nil
	}
	policy, ok := r.policies[entity]
	if !ok {
		return query.False
	}
	if id.Authenticated() {
		if id.UserID == "" {
			return query.False
		}
		if rule, ok := policy.Rules[id.Role]; ok {
			return rule(id.UserID)
		}
	}
	if policy.Public != nil {
		return policy.Public
	}
	return query.False
}

// Entities lists the entities that have a policy.
func (r *Resolver) Entities() []string {
	out := make([]string, 0, len(r.policies))
	for name := range r.policies {
		out = append(out, name)
	}
	return out
}

// Validate checks every rule of every policy against the catalog.
func (r *Resolver) Validate(catalog *query.Catalog) error {
	for entity, policy := range r.policies {
		if err := catalog.Validate(entity, policy.Public); err != nil {
			return fmt.Errorf("policy %s public: %w", entity, err)
		}
		for role, rule := range policy.Rules {
			if err := catalog.Validate(entity, rule("check")); err != nil {
				return fmt.Errorf("policy %s role %s: %w", entity, role, err)
			}
		}
	}
	return nil
}

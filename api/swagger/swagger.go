package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Edu Admin API",
        "description": "Role-scoped administration API for schools, teachers, students and learning records.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http", "https"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Entities", "description": "Scoped CRUD for every entity collection"},
        {"name": "Enrollments", "description": "Enrollment workflow"},
        {"name": "Features", "description": "Feature catalog"},
        {"name": "Assessments", "description": "Assessment exports"},
        {"name": "Authentication", "description": "Development tokens"},
        {"name": "Observability", "description": "Health and metrics"}
    ],
    "parameters": {
        "collection": {
            "name": "collection", "in": "path", "required": true, "type": "string",
            "enum": ["admins", "teachers", "students", "teacher-students", "parent-students", "courses", "enrollments", "assessments", "goals", "diary-entries", "rewards", "resources", "features"]
        },
        "id": {"name": "id", "in": "path", "required": true, "type": "integer", "format": "int64"},
        "include": {"name": "include", "in": "query", "type": "string", "description": "Comma separated relations to embed"}
    },
    "paths": {
        "/{collection}": {
            "get": {
                "tags": ["Entities"],
                "summary": "List visible records",
                "description": "Rows are limited to what the caller's role may see, then narrowed by the collection filters.",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/collection"},
                    {"name": "page", "in": "query", "type": "integer", "minimum": 1},
                    {"name": "limit", "in": "query", "type": "integer", "minimum": 1},
                    {"name": "sort", "in": "query", "type": "string"},
                    {"name": "order", "in": "query", "type": "string", "enum": ["asc", "desc"]},
                    {"$ref": "#/parameters/include"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Entities"],
                "summary": "Create a record",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/collection"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/{collection}/{id}": {
            "get": {
                "tags": ["Entities"],
                "summary": "Get a visible record",
                "security": [{"BearerAuth": []}],
                "parameters": [{"$ref": "#/parameters/collection"}, {"$ref": "#/parameters/id"}, {"$ref": "#/parameters/include"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Entities"],
                "summary": "Replace a visible record",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/collection"},
                    {"$ref": "#/parameters/id"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Entities"],
                "summary": "Delete a visible record",
                "security": [{"BearerAuth": []}],
                "parameters": [{"$ref": "#/parameters/collection"}, {"$ref": "#/parameters/id"}],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Enroll a student",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EnrollStudentRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Student or admin not visible", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already enrolled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Student inactive", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments/{id}/withdraw": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Withdraw an enrollment",
                "security": [{"BearerAuth": []}],
                "parameters": [{"$ref": "#/parameters/id"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Not active", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/features/catalog": {
            "get": {
                "tags": ["Features"],
                "summary": "Feature catalog visible to the caller",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/assessments/export": {
            "get": {
                "tags": ["Assessments"],
                "summary": "Export visible assessments",
                "produces": ["text/csv", "application/pdf"],
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]},
                    {"name": "sort", "in": "query", "type": "string"},
                    {"name": "order", "in": "query", "type": "string", "enum": ["asc", "desc"]}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Exports disabled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/dev-token": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Issue a development token",
                "description": "Only mounted outside production.",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/IssueTokenRequest"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": ["Observability"],
                "summary": "Process metrics summary",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        }
    },
    "definitions": {
        "EnrollStudentRequest": {
            "type": "object",
            "required": ["admin_id", "student_id"],
            "properties": {
                "admin_id": {"type": "integer", "format": "int64"},
                "student_id": {"type": "integer", "format": "int64"}
            }
        },
        "IssueTokenRequest": {
            "type": "object",
            "required": ["user_id", "role"],
            "properties": {
                "user_id": {"type": "string"},
                "role": {"type": "string", "enum": ["SUPERUSER", "ADMIN", "TEACHER", "TUTOR", "PARENT", "STUDENT"]},
                "email": {"type": "string"},
                "full_name": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"},
                "total_pages": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}

package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Gym Agenda API",
        "description": "Unified agenda of recurring classes, ad-hoc classes and personal sessions.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http", "https"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Agenda", "description": "Merged agenda reads, stats and exports"},
        {"name": "Templates", "description": "Recurring template administration"}
    ],
    "paths": {
        "/agenda/occurrences": {
            "get": {
                "tags": ["Agenda"],
                "summary": "List agenda occurrences",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "start", "in": "query", "type": "string", "format": "date", "required": true},
                    {"name": "end", "in": "query", "type": "string", "format": "date", "required": true},
                    {"name": "instructor", "in": "query", "type": "string"},
                    {"name": "course", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string", "enum": ["SCHEDULED", "IN_PROGRESS", "COMPLETED", "CANCELLED"]},
                    {"name": "kind", "in": "query", "type": "string", "enum": ["CLASS", "PERSONAL", "TEMPLATE"]},
                    {"name": "org", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid window or filters", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Store unavailable, retry", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/agenda/occurrences/{token}": {
            "get": {
                "tags": ["Agenda"],
                "summary": "Get one occurrence",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "token", "in": "path", "type": "string", "required": true},
                    {"name": "org", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/agenda/stats/today": {
            "get": {
                "tags": ["Agenda"],
                "summary": "Counters for the organization's current day",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "org", "in": "query", "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/agenda/stats/week": {
            "get": {
                "tags": ["Agenda"],
                "summary": "Per-day and per-slot breakdown of the current week",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "org", "in": "query", "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/agenda/export": {
            "get": {
                "tags": ["Agenda"],
                "summary": "Download the agenda of a window",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf", "text/calendar"],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf", "ics"], "required": true},
                    {"name": "start", "in": "query", "type": "string", "format": "date", "required": true},
                    {"name": "end", "in": "query", "type": "string", "format": "date", "required": true},
                    {"name": "instructor", "in": "query", "type": "string"},
                    {"name": "course", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "kind", "in": "query", "type": "string"},
                    {"name": "org", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}},
                    "400": {"description": "Invalid request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/agenda/feed": {
            "post": {
                "tags": ["Agenda"],
                "summary": "Issue a signed calendar subscription link",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/FeedRequest"}}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/agenda/feed/{token}": {
            "get": {
                "tags": ["Agenda"],
                "summary": "Calendar subscription feed",
                "produces": ["text/calendar"],
                "parameters": [{"name": "token", "in": "path", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "iCalendar document", "schema": {"type": "file"}},
                    "401": {"description": "Invalid or expired token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/agenda/templates/bulk": {
            "patch": {
                "tags": ["Templates"],
                "summary": "Activate or deactivate several recurring templates",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BulkTemplateRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "FeedRequest": {
            "type": "object",
            "properties": {"organization_id": {"type": "string"}}
        },
        "BulkTemplateRequest": {
            "type": "object",
            "required": ["template_ids", "active"],
            "properties": {
                "organization_id": {"type": "string"},
                "template_ids": {"type": "array", "items": {"type": "string"}},
                "active": {"type": "boolean"}
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

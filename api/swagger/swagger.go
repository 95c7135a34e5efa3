package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Caselog API",
        "description": "Emergency case submission and administrator dashboard",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Cases", "description": "Public submission form and case lookup"},
        {"name": "Authentication", "description": "Administrator login and session checks"},
        {"name": "Dashboard", "description": "Filtering, metrics, selection, deletion and export"}
    ],
    "paths": {
        "/reference": {
            "get": {
                "tags": ["Cases"],
                "summary": "Form reference data",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/cases": {
            "post": {
                "tags": ["Cases"],
                "summary": "Submit a case",
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/CaseForm"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Incomplete form", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Case store unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/cases/{id}": {
            "get": {
                "tags": ["Cases"],
                "summary": "Get a case",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate administrator",
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/session": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Check a stored session token",
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/SessionCheckRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current administrator",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/dashboard": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Dashboard view",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "header", "name": "X-Session-Token", "type": "string", "required": true},
                    {"in": "header", "name": "X-Session-User", "type": "string", "required": true},
                    {"in": "query", "name": "severity", "type": "string"},
                    {"in": "query", "name": "dateFrom", "type": "string", "format": "date"},
                    {"in": "query", "name": "dateTo", "type": "string", "format": "date"},
                    {"in": "query", "name": "rescuerName", "type": "string"},
                    {"in": "query", "name": "rescuerRank", "type": "string"},
                    {"in": "query", "name": "trainer", "type": "string"},
                    {"in": "query", "name": "sortBy", "type": "string", "enum": ["date", "rescuerName"]},
                    {"in": "query", "name": "sortDirection", "type": "string", "enum": ["asc", "desc"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Session expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/dashboard/refresh": {
            "post": {
                "tags": ["Dashboard"],
                "summary": "Refetch cases",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/dashboard/selection": {
            "put": {
                "tags": ["Dashboard"],
                "summary": "Toggle select-all",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"type": "object", "properties": {"all": {"type": "boolean"}}}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/dashboard/selection/{id}": {
            "put": {
                "tags": ["Dashboard"],
                "summary": "Select or deselect one case",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "id", "type": "string", "required": true},
                    {"in": "body", "name": "payload", "required": true, "schema": {"type": "object", "properties": {"selected": {"type": "boolean"}}}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/dashboard/cases": {
            "delete": {
                "tags": ["Dashboard"],
                "summary": "Delete selected cases",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/dashboard/cases/{id}": {
            "delete": {
                "tags": ["Dashboard"],
                "summary": "Delete a case",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/dashboard/export": {
            "post": {
                "tags": ["Dashboard"],
                "summary": "Export all cases",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "query", "name": "format", "type": "string", "enum": ["xlsx", "csv", "pdf"]}],
                "responses": {"200": {"description": "Signed download link", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/export/{token}": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Download an export",
                "produces": ["application/octet-stream"],
                "parameters": [{"in": "path", "name": "token", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "File"},
                    "401": {"description": "Invalid or expired link", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CaseForm": {
            "type": "object",
            "properties": {
                "rescuerName": {"type": "string"},
                "rescuerRank": {"type": "string"},
                "trainer": {"type": "string"},
                "date": {"type": "string", "format": "date", "example": "2024-03-01"},
                "caseCode": {"type": "string", "enum": ["red", "yellow"]},
                "caseDetails": {"type": "string"}
            }
        },
        "LoginRequest": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "SessionCheckRequest": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "username": {"type": "string"}
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

package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Incubation Compliance API",
        "description": "Compliance status engine for incubation programme participants",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http",
        "https"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [
        {"BearerAuth": []}
    ],
    "tags": [
        {"name": "Compliance", "description": "Participant document compliance"},
        {"name": "Exports", "description": "Asynchronous compliance exports"},
        {"name": "Metrics", "description": "Operational endpoints"}
    ],
    "paths": {
        "/compliance/overview": {
            "get": {
                "tags": ["Compliance"],
                "summary": "Compliance overview for a company",
                "parameters": [
                    {"name": "companyCode", "in": "query", "required": true, "type": "string"},
                    {"name": "refresh", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "500": {"description": "Store failure", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/compliance/stats": {
            "get": {
                "tags": ["Compliance"],
                "summary": "Global compliance statistics for a company",
                "parameters": [
                    {"name": "companyCode", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/compliance/participants/{id}": {
            "get": {
                "tags": ["Compliance"],
                "summary": "Compliance summary for one participant",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "companyCode", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/compliance/participants/{id}/verify": {
            "post": {
                "tags": ["Compliance"],
                "summary": "Verify or query a participant document",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/VerifyDocumentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Document not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Concurrent modification", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/compliance/reminders": {
            "get": {
                "tags": ["Compliance"],
                "summary": "Reminder payloads for participants needing action",
                "parameters": [
                    {"name": "companyCode", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/compliance/reminders/dispatch": {
            "post": {
                "tags": ["Compliance"],
                "summary": "Publish reminders to the notifier queue",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DispatchRemindersRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Notifier unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/compliance/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Queue a compliance export",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/compliance/exports/{id}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Compliance export status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/export/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a finished export via signed token",
                "security": [],
                "produces": ["application/octet-stream"],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File"}
                }
            }
        },
        "/metrics/system": {
            "get": {
                "tags": ["Metrics"],
                "summary": "Process level counters",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "VerifyDocumentRequest": {
            "type": "object",
            "required": ["companyCode", "status"],
            "properties": {
                "companyCode": {"type": "string"},
                "participantId": {"type": "string"},
                "docId": {"type": "string"},
                "type": {"type": "string"},
                "documentName": {"type": "string"},
                "expiryDate": {"type": "string", "description": "Date string, epoch milliseconds or {seconds,nanoseconds}"},
                "status": {"type": "string", "enum": ["verified", "queried"]},
                "comment": {"type": "string"},
                "reviewerName": {"type": "string"}
            }
        },
        "DispatchRemindersRequest": {
            "type": "object",
            "required": ["companyCode"],
            "properties": {
                "companyCode": {"type": "string"}
            }
        },
        "ReportRequest": {
            "type": "object",
            "required": ["companyCode", "type", "format"],
            "properties": {
                "companyCode": {"type": "string"},
                "type": {"type": "string", "enum": ["participants", "documents"]},
                "format": {"type": "string", "enum": ["csv", "pdf", "xlsx"]},
                "participantId": {"type": "string"},
                "statuses": {
                    "type": "array",
                    "items": {"type": "string", "enum": ["valid", "expiring", "expired", "missing", "pending", "invalid"]}
                }
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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

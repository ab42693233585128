package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "PBIS Tier Support API",
        "description": "Tier triage, CICO reconciliation and behavior analytics for school-wide PBIS teams",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Tier", "description": "Roster and tier flag administration"},
        {"name": "Triage", "description": "Meeting triage, Tier3 and CICO reviews"},
        {"name": "CICO", "description": "Monthly check-in/check-out grid"},
        {"name": "Intervention", "description": "Behavior intervention plans and meeting notes"},
        {"name": "Analytics", "description": "Dashboard and student drill-down"},
        {"name": "Exports", "description": "CSV, PDF and XLSX downloads"}
    ],
    "paths": {
        "/tier/status": {
            "get": {
                "tags": ["Tier"],
                "summary": "List students with tier flags",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/tier/status/{code}": {
            "put": {
                "tags": ["Tier"],
                "summary": "Update enrollment, external code, tier flags or memo",
                "parameters": [
                    {"name": "code", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/tier/mapping": {
            "get": {
                "tags": ["Tier"],
                "summary": "External code mapping of enrolled students",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/meeting/triage": {
            "get": {
                "tags": ["Triage"],
                "summary": "Four-week team meeting triage",
                "parameters": [
                    {"name": "date", "in": "query", "type": "string", "required": false}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/tier3/review": {
            "get": {
                "tags": ["Triage"],
                "summary": "Tier3 caseload review",
                "parameters": [
                    {"name": "from", "in": "query", "type": "string", "required": false},
                    {"name": "to", "in": "query", "type": "string", "required": false}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/cico/review": {
            "get": {
                "tags": ["Triage"],
                "summary": "Monthly CICO review",
                "parameters": [
                    {"name": "year", "in": "query", "type": "integer", "required": false},
                    {"name": "month", "in": "query", "type": "integer", "required": false}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/cico/monthly": {
            "get": {
                "tags": ["CICO"],
                "summary": "Monthly CICO grid",
                "parameters": [
                    {"name": "year", "in": "query", "type": "integer", "required": false},
                    {"name": "month", "in": "query", "type": "integer", "required": false}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/cico/monthly/generate": {
            "post": {
                "tags": ["CICO"],
                "summary": "Create the month's records for Tier2(CICO) students",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/cico/monthly/cells": {
            "post": {
                "tags": ["CICO"],
                "summary": "Edit several day cells",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/cico/monthly/tier2": {
            "put": {
                "tags": ["CICO"],
                "summary": "Keep (O) or release (X) a student from Tier2 for one month",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/cico/daily": {
            "get": {
                "tags": ["CICO"],
                "summary": "Filled day cells across monthly records",
                "parameters": [
                    {"name": "student_code", "in": "query", "type": "string", "required": false},
                    {"name": "from", "in": "query", "type": "string", "required": false},
                    {"name": "to", "in": "query", "type": "string", "required": false}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["CICO"],
                "summary": "Fold one daily check-in into the monthly record",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/cico/settings": {
            "put": {
                "tags": ["CICO"],
                "summary": "Change target, direction, scale or goal",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/cico/business-days": {
            "get": {
                "tags": ["CICO"],
                "summary": "Weekdays of a month minus holidays",
                "parameters": [
                    {"name": "year", "in": "query", "type": "integer", "required": false},
                    {"name": "month", "in": "query", "type": "integer", "required": false}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{code}/bip": {
            "get": {
                "tags": ["Intervention"],
                "summary": "Behavior intervention plan of a student",
                "parameters": [
                    {"name": "code", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Intervention"],
                "summary": "Replace a student's behavior intervention plan",
                "parameters": [
                    {"name": "code", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/meeting-notes": {
            "get": {
                "tags": ["Intervention"],
                "summary": "List meeting notes, newest first",
                "parameters": [
                    {"name": "meeting_type", "in": "query", "type": "string", "required": false},
                    {"name": "student_code", "in": "query", "type": "string", "required": false}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Intervention"],
                "summary": "Record a team meeting",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/meeting-notes/latest": {
            "get": {
                "tags": ["Intervention"],
                "summary": "Newest note of each meeting type",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/analytics/dashboard": {
            "get": {
                "tags": ["Analytics"],
                "summary": "School-wide behavior dashboard",
                "parameters": [
                    {"name": "from", "in": "query", "type": "string", "required": false},
                    {"name": "to", "in": "query", "type": "string", "required": false}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/analytics/students/{code}": {
            "get": {
                "tags": ["Analytics"],
                "summary": "Single-student drill-down",
                "parameters": [
                    {"name": "code", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/analytics/overview": {
            "get": {
                "tags": ["Analytics"],
                "summary": "Dashboard, meeting triage and CICO review",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/risk-list": {
            "get": {
                "tags": ["Exports"],
                "summary": "Risk list as CSV or PDF",
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "required": false}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/tier3": {
            "get": {
                "tags": ["Exports"],
                "summary": "Tier3 review as CSV or PDF",
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "required": false}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/cico": {
            "get": {
                "tags": ["Exports"],
                "summary": "Monthly CICO grid as XLSX",
                "parameters": [
                    {"name": "year", "in": "query", "type": "integer", "required": false},
                    {"name": "month", "in": "query", "type": "integer", "required": false}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/system/metrics": {
            "get": {
                "tags": ["System"],
                "summary": "Instrumentation snapshot",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
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

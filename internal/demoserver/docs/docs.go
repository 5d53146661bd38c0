// Package docs holds the Swagger description of the demo job backend and
// registers it with swag for the /swagger/ UI.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/jobs": {
            "get": {
                "produces": ["application/json"],
                "tags": ["jobs"],
                "summary": "List scan jobs",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"type": "array", "items": {"$ref": "#/definitions/jobstatus.Snapshot"}}
                    }
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["jobs"],
                "summary": "Create a scan job",
                "parameters": [
                    {
                        "description": "Job definition",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/demoserver.CreateJobRequest"}
                    }
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/jobstatus.Snapshot"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/demoserver.ErrorResponse"}}
                }
            }
        },
        "/jobs/{jobID}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["jobs"],
                "summary": "Get job status",
                "parameters": [
                    {"type": "string", "description": "Job ID", "name": "jobID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/jobstatus.Snapshot"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/demoserver.ErrorResponse"}}
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["jobs"],
                "summary": "Cancel a job",
                "parameters": [
                    {"type": "string", "description": "Job ID", "name": "jobID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/jobstatus.Snapshot"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/demoserver.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/demoserver.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "demoserver.CreateJobRequest": {
            "type": "object",
            "properties": {
                "target": {"type": "string", "example": "https://example.com"},
                "tools": {"type": "array", "items": {"type": "string"}, "example": ["subfinder", "nuclei"]},
                "fail_at": {"type": "integer", "example": 0}
            }
        },
        "demoserver.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "job not found"}
            }
        },
        "jobstatus.Snapshot": {
            "type": "object",
            "properties": {
                "job_id": {"type": "string"},
                "status": {"type": "string", "enum": ["queued", "running", "completed", "failed", "cancelled"]},
                "target": {"type": "string"},
                "tools": {"type": "array", "items": {"type": "string"}},
                "started_at": {"type": "string", "format": "date-time"},
                "completed_at": {"type": "string", "format": "date-time"},
                "duration": {"type": "number"},
                "findings_count": {"type": "integer"},
                "progress": {
                    "description": "Either a number (percent) or an object with percent, current_tool, completed_tools and total_tools."
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Moku demo job backend",
	Description:      "In-memory scan jobs that advance on a timer, for exercising mokuwatch.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

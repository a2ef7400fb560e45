// Package docs holds the OpenAPI document served under /swagger/.
// It mirrors the swag annotations on the handlers; keep both in step.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/delete-upload": {
            "post": {
                "description": "An unknown id answers success false with \"Not found\" rather than an error status.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["uploads"],
                "summary": "Delete an upload",
                "parameters": [
                    {
                        "description": "Record id",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/uploads.DeleteUploadRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "Deleted, or not found", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "ID required", "schema": {"$ref": "#/definitions/response.Response"}},
                    "500": {"description": "Server error", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/api/uploads": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["uploads"],
                "summary": "List uploads for an email",
                "parameters": [
                    {
                        "description": "Uploader email",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/uploads.ListUploadsRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "Uploads, newest first", "schema": {"$ref": "#/definitions/uploads.ListUploadsResponse"}},
                    "400": {"description": "Email required", "schema": {"$ref": "#/definitions/response.Response"}},
                    "500": {"description": "Server error", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/login": {
            "post": {
                "description": "Returns the identity, plus a token when the server has a signing secret",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Log in with a name and email",
                "parameters": [
                    {
                        "description": "Name and email",
                        "name": "user",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/uploads.LoginRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "Identity accepted, or success false when a field is missing", "schema": {"$ref": "#/definitions/uploads.LoginResponse"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/response.Response"}},
                    "500": {"description": "Internal server error", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/upload/{sport}": {
            "post": {
                "description": "Multipart upload with a \"video\" file part and an optional \"user\" part holding {\"name\",\"email\"} as JSON. A Bearer token identity is used when \"user\" is absent.",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["uploads"],
                "summary": "Upload a video",
                "parameters": [
                    {"type": "string", "description": "Sport name", "name": "sport", "in": "path", "required": true},
                    {"type": "file", "description": "Video file (.mp4, .mov, .avi, .webm)", "name": "video", "in": "formData", "required": true},
                    {"type": "string", "description": "Uploader identity as JSON", "name": "user", "in": "formData"}
                ],
                "responses": {
                    "200": {"description": "Uploaded successfully", "schema": {"$ref": "#/definitions/uploads.UploadResponse"}},
                    "400": {"description": "No video uploaded or unsupported format", "schema": {"$ref": "#/definitions/response.Response"}},
                    "429": {"description": "Too many uploads", "schema": {"$ref": "#/definitions/response.Response"}},
                    "500": {"description": "Server error", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/ws": {
            "get": {
                "description": "Upgrades to a WebSocket that receives upload.created and upload.deleted events for the token's email.",
                "tags": ["events"],
                "summary": "Upload event stream",
                "parameters": [
                    {"type": "string", "description": "Login token", "name": "token", "in": "query", "required": true}
                ],
                "responses": {
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        }
    },
    "definitions": {
        "response.Response": {
            "type": "object",
            "properties": {
                "data": {},
                "message": {"type": "string"},
                "success": {"type": "boolean"}
            }
        },
        "uploads.DeleteUploadRequest": {
            "type": "object",
            "required": ["id"],
            "properties": {
                "id": {"type": "integer"}
            }
        },
        "uploads.ListUploadsRequest": {
            "type": "object",
            "required": ["email"],
            "properties": {
                "email": {"type": "string"}
            }
        },
        "uploads.ListUploadsResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "uploads": {"type": "array", "items": {"$ref": "#/definitions/uploads.UploadRecord"}}
            }
        },
        "uploads.LoginRequest": {
            "type": "object",
            "required": ["email", "name"],
            "properties": {
                "email": {"type": "string"},
                "name": {"type": "string"}
            }
        },
        "uploads.LoginResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "token": {"type": "string"},
                "user": {"$ref": "#/definitions/uploads.LoginUser"}
            }
        },
        "uploads.LoginUser": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "name": {"type": "string"}
            }
        },
        "uploads.UploadRecord": {
            "type": "object",
            "properties": {
                "checksum": {"type": "string"},
                "created_at": {"type": "string"},
                "filename": {"type": "string"},
                "filepath": {"type": "string"},
                "id": {"type": "integer"},
                "size_bytes": {"type": "integer"},
                "sport": {"type": "string"},
                "url": {"type": "string"},
                "user_email": {"type": "string"},
                "user_name": {"type": "string"}
            }
        },
        "uploads.UploadResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "success": {"type": "boolean"},
                "upload": {"$ref": "#/definitions/uploads.UploadRecord"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Sports Performance Analyzer API",
	Description:      "Upload, list and delete sport training videos.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

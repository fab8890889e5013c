// Package docs holds the OpenAPI description served under /swagger.
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
        "/extract": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Reads a PDF or image, extracts the fields of the given document type and returns them with a base64 spreadsheet",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["extraction"],
                "summary": "Extract fields from a document",
                "parameters": [
                    {"type": "file", "description": "Document (PDF, JPG, JPEG or PNG)", "name": "file", "in": "formData", "required": true},
                    {"type": "string", "description": "Document type label (alias: tipo_documento)", "name": "document_type", "in": "formData", "required": true},
                    {"type": "string", "description": "Spreadsheet format: xlsx (default) or csv", "name": "format", "in": "formData"}
                ],
                "responses": {
                    "200": {"description": "Extracted fields and spreadsheet", "schema": {"$ref": "#/definitions/handler.ExtractResponse"}},
                    "400": {"description": "Missing file, document type or unsupported type", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "413": {"description": "File too large", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "500": {"description": "Internal failure", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "502": {"description": "Extraction service failed", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/extract/download": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Same inputs as /extract; responds with the spreadsheet file as an attachment",
                "consumes": ["multipart/form-data"],
                "produces": ["application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "text/csv"],
                "tags": ["extraction"],
                "summary": "Extract fields and download the spreadsheet",
                "parameters": [
                    {"type": "file", "description": "Document (PDF, JPG, JPEG or PNG)", "name": "file", "in": "formData", "required": true},
                    {"type": "string", "description": "Document type label (alias: tipo_documento)", "name": "document_type", "in": "formData", "required": true},
                    {"type": "string", "description": "Spreadsheet format: xlsx (default) or csv", "name": "format", "in": "formData"}
                ],
                "responses": {
                    "200": {"description": "Spreadsheet", "schema": {"type": "file"}},
                    "400": {"description": "Invalid request", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "413": {"description": "File too large", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "502": {"description": "Extraction service failed", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "handler.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "error": {"type": "string"},
                "stage": {"type": "string"}
            }
        },
        "handler.ExtractResponse": {
            "type": "object",
            "properties": {
                "campos_importantes": {"type": "string"},
                "download_url": {"type": "string"},
                "extracted_fields": {"type": "string"},
                "filename": {"type": "string"},
                "format": {"type": "string"},
                "model": {"type": "string"},
                "planilha": {"type": "string"},
                "provider": {"type": "string"},
                "records": {"type": "array", "items": {"type": "object", "additionalProperties": {"type": "string"}}},
                "spreadsheet": {"type": "string"},
                "truncated": {"type": "boolean"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and the JWT.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "docextract API",
	Description:      "Document field extraction: upload a PDF or image, get the fields as a spreadsheet.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

// Copyright 2026 The Orgsvc Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package docs registers the OpenAPI document served on /swagger/doc.json.
// Keep it in step with the annotations in internal/transport/http.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "{{.Title}}",
        "description": "{{escape .Description}}",
        "version": "{{.Version}}",
        "license": {
            "name": "Apache 2.0",
            "url": "http://www.apache.org/licenses/LICENSE-2.0.html"
        }
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "schemes": {{ marshal .Schemes }},
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/health": {"get": {"tags": ["System"], "summary": "Health Check", "produces": ["application/json"],
            "responses": {"200": {"description": "OK"}, "503": {"description": "Service Unavailable"}}}},
        "/ping": {"get": {"tags": ["System"], "summary": "Ping", "responses": {"200": {"description": "OK"}}}},
        "/version": {"get": {"tags": ["System"], "summary": "Version", "responses": {"200": {"description": "OK"}}}},
        "/org/create": {"post": {"tags": ["Organizations"], "summary": "Create organization",
            "consumes": ["application/json"], "produces": ["application/json"],
            "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/OrganizationRequest"}}],
            "responses": {
                "201": {"description": "Created", "schema": {"$ref": "#/definitions/OrganizationResponse"}},
                "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ErrorResponse"}}}}},
        "/org/get": {"get": {"tags": ["Organizations"], "summary": "Get organization", "produces": ["application/json"],
            "parameters": [{"in": "query", "name": "organization_name", "type": "string", "required": true}],
            "responses": {
                "200": {"description": "OK", "schema": {"$ref": "#/definitions/OrganizationResponse"}},
                "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ErrorResponse"}}}}},
        "/org/stats": {"get": {"tags": ["Organizations"], "summary": "Organization statistics",
            "responses": {"200": {"description": "OK"}}}},
        "/org/update": {"put": {"tags": ["Organizations"], "summary": "Update organization", "security": [{"BearerAuth": []}],
            "consumes": ["application/json"], "produces": ["application/json"],
            "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/OrganizationRequest"}}],
            "responses": {
                "200": {"description": "OK", "schema": {"$ref": "#/definitions/OrganizationResponse"}},
                "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ErrorResponse"}}}}},
        "/org/delete": {"delete": {"tags": ["Organizations"], "summary": "Delete organization", "security": [{"BearerAuth": []}],
            "parameters": [{"in": "query", "name": "organization_name", "type": "string", "required": true}],
            "responses": {
                "200": {"description": "OK", "schema": {"$ref": "#/definitions/OrganizationResponse"}},
                "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ErrorResponse"}}}}},
        "/admin/login": {"post": {"tags": ["Admin"], "summary": "Admin login",
            "consumes": ["application/json"], "produces": ["application/json"],
            "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}],
            "responses": {
                "200": {"description": "OK", "schema": {"$ref": "#/definitions/LoginResponse"}},
                "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ErrorResponse"}}}}},
        "/admin/profile": {"get": {"tags": ["Admin"], "summary": "Admin profile", "security": [{"BearerAuth": []}],
            "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}},
        "/admin/logout": {"post": {"tags": ["Admin"], "summary": "Admin logout", "security": [{"BearerAuth": []}],
            "responses": {"200": {"description": "OK"}}}},
        "/analytics/system": {"get": {"tags": ["Analytics"], "summary": "System metrics",
            "responses": {"200": {"description": "OK"}}}},
        "/analytics/performance": {"get": {"tags": ["Analytics"], "summary": "Performance metrics",
            "responses": {"200": {"description": "OK"}}}},
        "/analytics/dashboard": {"get": {"tags": ["Analytics"], "summary": "Organization dashboard", "security": [{"BearerAuth": []}],
            "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}},
        "/analytics/audit-logs": {"get": {"tags": ["Analytics"], "summary": "Audit logs", "security": [{"BearerAuth": []}],
            "parameters": [
                {"in": "query", "name": "limit", "type": "integer", "default": 50},
                {"in": "query", "name": "skip", "type": "integer", "default": 0},
                {"in": "query", "name": "action", "type": "string"}],
            "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}}
    },
    "definitions": {
        "ErrorResponse": {"type": "object", "properties": {
            "error": {"type": "string"}, "error_code": {"type": "string"}}},
        "OrganizationRequest": {"type": "object", "properties": {
            "organization_name": {"type": "string", "example": "acme_corp"},
            "email": {"type": "string", "example": "admin@acme.com"},
            "password": {"type": "string"}}},
        "OrganizationResponse": {"type": "object", "properties": {
            "success": {"type": "boolean"}, "message": {"type": "string"},
            "organization_id": {"type": "string"}, "organization_name": {"type": "string"},
            "collection_name": {"type": "string"}, "admin_email": {"type": "string"},
            "created_at": {"type": "string", "format": "date-time"},
            "updated_at": {"type": "string", "format": "date-time"}}},
        "LoginRequest": {"type": "object", "properties": {
            "email": {"type": "string"}, "password": {"type": "string"}}},
        "LoginResponse": {"type": "object", "properties": {
            "success": {"type": "boolean"}, "message": {"type": "string"},
            "access_token": {"type": "string"}, "token_type": {"type": "string"},
            "expires_in": {"type": "integer"}, "admin_id": {"type": "string"},
            "organization_id": {"type": "string"}}}
    }
}`

// SwaggerInfo holds the exported document metadata; main sets the version.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Organization Directory API",
	Description:      "Multi-tenant organization management with per-organization collections",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

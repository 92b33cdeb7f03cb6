// Package docs registers the OpenAPI description served under /swagger.
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
        "/auth/signup": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Sign up with a wallet",
                "parameters": [
                    {"description": "Account and wallet details", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.signupRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.authResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Login with a wallet signature",
                "parameters": [
                    {"description": "Signed nonce challenge", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.loginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.authResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/auth/admin/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Admin login with a wallet signature",
                "parameters": [
                    {"description": "Signed nonce challenge", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.loginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.authResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/wallets/{id}/nonce": {
            "get": {
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Get the login nonce of a wallet",
                "parameters": [
                    {"type": "string", "description": "Wallet address", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.nonceResponse"}}
                }
            }
        },
        "/user-social-medias/verify": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["social"],
                "summary": "Verify a social account",
                "parameters": [
                    {"description": "Account to verify", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.verifySocialRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.verifyResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/user-social-medias/{userId}/{peopleId}/verify": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["social"],
                "summary": "Re-check a social account link",
                "parameters": [
                    {"type": "string", "description": "Wallet address", "name": "userId", "in": "path", "required": true},
                    {"type": "string", "description": "People id", "name": "peopleId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.verifyResponse"}}
                }
            }
        }
    },
    "definitions": {
        "handler.errorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}, "detail": {"type": "string"}}
        },
        "handler.signupRequest": {
            "type": "object",
            "required": ["name", "username", "address", "wallet_type", "network"],
            "properties": {
                "name": {"type": "string"},
                "username": {"type": "string"},
                "address": {"type": "string"},
                "wallet_type": {"type": "string", "enum": ["polkadot", "ethereum", "near"]},
                "network": {"type": "string"}
            }
        },
        "handler.signatureRequest": {
            "type": "object",
            "required": ["signature"],
            "properties": {"signature": {"type": "string"}, "public_key": {"type": "string"}}
        },
        "handler.loginRequest": {
            "type": "object",
            "required": ["public_address"],
            "properties": {
                "public_address": {"type": "string"},
                "nonce": {"type": "integer"},
                "wallet_type": {"type": "string"},
                "network_type": {"type": "string"},
                "signature_proof": {"$ref": "#/definitions/handler.signatureRequest"}
            }
        },
        "handler.authResponse": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "user": {"type": "object"},
                "wallet": {"type": "object"}
            }
        },
        "handler.nonceResponse": {
            "type": "object",
            "properties": {"nonce": {"type": "integer"}}
        },
        "handler.verifySocialRequest": {
            "type": "object",
            "required": ["public_key", "username", "platform"],
            "properties": {
                "public_key": {"type": "string"},
                "username": {"type": "string"},
                "platform": {"type": "string", "enum": ["twitter", "reddit", "facebook"]}
            }
        },
        "handler.verifyResponse": {
            "type": "object",
            "properties": {"verified": {"type": "boolean"}}
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Social API",
	Description:      "Wallet authentication and social account verification.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

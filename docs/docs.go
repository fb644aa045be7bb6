// Package docs registers the OpenAPI document served under /swagger.
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
        "/github": {
            "get": {
                "produces": ["application/json"],
                "tags": ["dashboard"],
                "summary": "Contribution calendar summary",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/stats.ContributionSummary"}},
                    "500": {"description": "Provider failure or missing token", "schema": {"$ref": "#/definitions/errors.Response"}}
                }
            }
        },
        "/umami": {
            "get": {
                "produces": ["application/json"],
                "tags": ["dashboard"],
                "summary": "Site traffic for the last 30 days with a 7 day chart",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/stats.TrafficSummary"}},
                    "default": {"description": "Upstream status passed through", "schema": {"$ref": "#/definitions/errors.Response"}}
                }
            }
        },
        "/wakatime": {
            "get": {
                "produces": ["application/json"],
                "tags": ["dashboard"],
                "summary": "Coding activity for the last 7 days",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/stats.CodingActivitySummary"}},
                    "default": {"description": "Upstream status passed through", "schema": {"$ref": "#/definitions/errors.Response"}}
                }
            }
        },
        "/monkeytype": {
            "get": {
                "produces": ["application/json"],
                "tags": ["dashboard"],
                "summary": "Typing test summary",
                "description": "Statuses in the configured degrade range answer 200 with a zero summary and rateLimited set.",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/stats.TypingSummary"}},
                    "default": {"description": "Upstream status passed through", "schema": {"$ref": "#/definitions/errors.Response"}}
                }
            }
        },
        "/projects": {
            "get": {
                "produces": ["application/json"],
                "tags": ["projects"],
                "summary": "List published projects",
                "parameters": [
                    {"type": "string", "name": "q", "in": "query", "description": "Full text filter"},
                    {"type": "string", "name": "stack", "in": "query", "description": "Stack filter"}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["projects"],
                "summary": "Create a project",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Invalid project", "schema": {"$ref": "#/definitions/errors.Response"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/errors.Response"}}
                }
            }
        },
        "/projects/{slug}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["projects"],
                "summary": "Get a published project",
                "parameters": [{"type": "string", "name": "slug", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/errors.Response"}}
                }
            },
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["projects"],
                "summary": "Update a project",
                "security": [{"BearerAuth": []}],
                "parameters": [{"type": "string", "name": "slug", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/errors.Response"}}
                }
            },
            "delete": {
                "tags": ["projects"],
                "summary": "Delete a project",
                "security": [{"BearerAuth": []}],
                "parameters": [{"type": "string", "name": "slug", "in": "path", "required": true}],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/errors.Response"}}
                }
            }
        },
        "/admin/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Exchange the admin password for a bearer token",
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Wrong password", "schema": {"$ref": "#/definitions/errors.Response"}},
                    "429": {"description": "Too many attempts", "schema": {"$ref": "#/definitions/errors.Response"}}
                }
            }
        },
        "/chat/messages": {
            "get": {
                "produces": ["application/json"],
                "tags": ["chat"],
                "summary": "Newest visible messages, oldest first",
                "parameters": [{"type": "integer", "name": "limit", "in": "query", "description": "1..500, default 100"}],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["chat"],
                "summary": "Post a message and broadcast it to connected clients",
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Invalid message", "schema": {"$ref": "#/definitions/errors.Response"}},
                    "429": {"description": "Rate limited", "schema": {"$ref": "#/definitions/errors.Response"}}
                }
            }
        },
        "/chat/ws": {
            "get": {
                "tags": ["chat"],
                "summary": "Websocket stream of new messages",
                "responses": {"101": {"description": "Switching Protocols"}}
            }
        },
        "/admin/chat/messages/{id}": {
            "patch": {
                "consumes": ["application/json"],
                "tags": ["chat"],
                "summary": "Hide or show a message",
                "security": [{"BearerAuth": []}],
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/errors.Response"}}
                }
            }
        },
        "/privacy": {
            "get": {
                "produces": ["application/json"],
                "tags": ["privacy"],
                "summary": "Data retention policy",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/admin/privacy/messages": {
            "delete": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["privacy"],
                "summary": "Erase every message posted with an email address",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/ratelimit": {
            "get": {
                "produces": ["application/json"],
                "tags": ["ratelimit"],
                "summary": "Caller's remaining request budget",
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
        "errors.Response": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "details": {"type": "string"}
            }
        },
        "stats.ContributionDay": {
            "type": "object",
            "properties": {
                "count": {"type": "integer"},
                "date": {"type": "string"}
            }
        },
        "stats.ContributionSummary": {
            "type": "object",
            "properties": {
                "totalContributions": {"type": "integer"},
                "thisWeek": {"type": "integer"},
                "average": {"type": "number"},
                "weeks": {"type": "array", "items": {"type": "array", "items": {"$ref": "#/definitions/stats.ContributionDay"}}}
            }
        },
        "stats.ChartPoint": {
            "type": "object",
            "properties": {
                "date": {"type": "string"},
                "pageviews": {"type": "integer"},
                "visits": {"type": "integer"}
            }
        },
        "stats.CountryVisitors": {
            "type": "object",
            "properties": {
                "country": {"type": "string"},
                "visitors": {"type": "integer"},
                "mapId": {"type": "string"}
            }
        },
        "stats.TrafficSummary": {
            "type": "object",
            "properties": {
                "pageViews": {"type": "integer"},
                "visitors": {"type": "integer"},
                "visits": {"type": "integer"},
                "bounces": {"type": "integer"},
                "totalTime": {"type": "integer"},
                "chartData": {"type": "array", "items": {"$ref": "#/definitions/stats.ChartPoint"}},
                "countries": {"type": "array", "items": {"$ref": "#/definitions/stats.CountryVisitors"}}
            }
        },
        "stats.Entry": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "percent": {"type": "number"},
                "text": {"type": "string"}
            }
        },
        "stats.CodingActivitySummary": {
            "type": "object",
            "properties": {
                "dailyAverage": {"type": "string"},
                "totalTime": {"type": "string"},
                "bestDay": {"type": "object", "properties": {"date": {"type": "string"}, "text": {"type": "string"}}},
                "languages": {"type": "array", "items": {"$ref": "#/definitions/stats.Entry"}},
                "editors": {"type": "array", "items": {"$ref": "#/definitions/stats.Entry"}},
                "categories": {"type": "array", "items": {"$ref": "#/definitions/stats.Entry"}},
                "range": {"type": "object", "properties": {"start": {"type": "string"}, "end": {"type": "string"}}},
                "allTime": {"type": "string", "x-nullable": true}
            }
        },
        "stats.RecentTest": {
            "type": "object",
            "properties": {
                "wpm": {"type": "number"},
                "accuracy": {"type": "number"},
                "mode": {"type": "string"},
                "duration": {"type": "string"},
                "timestamp": {"type": "integer"}
            }
        },
        "stats.TypingSummary": {
            "type": "object",
            "properties": {
                "totalTests": {"type": "integer"},
                "bestWpm": {"type": "number"},
                "avgWpm": {"type": "number"},
                "bestAccuracy": {"type": "number"},
                "avgAccuracy": {"type": "number"},
                "recentTests": {"type": "array", "items": {"$ref": "#/definitions/stats.RecentTest"}},
                "rateLimited": {"type": "boolean"},
                "errorCode": {"type": "integer"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
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
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "devfolio API",
	Description:      "Portfolio backend: provider dashboards, projects catalog and chat room.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Homework Board API",
        "description": "Homework feed for students and parents, with a signed-in editor for teachers.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http",
        "https"
    ],
    "tags": [
        {
            "name": "Authentication",
            "description": "Teacher sign-in"
        },
        {
            "name": "Homework",
            "description": "Public feed and detail views"
        },
        {
            "name": "Teacher",
            "description": "Dashboard and edit form"
        }
    ],
    "paths": {
        "/auth/google": {
            "post": {
                "tags": [
                    "Authentication"
                ],
                "summary": "Sign in with Google",
                "responses": {
                    "200": {
                        "description": "Signed in",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "401": {
                        "description": "Invalid ID token",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "503": {
                        "description": "Google sign-in not configured",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/GoogleLoginRequest"
                        }
                    }
                ]
            }
        },
        "/auth/login": {
            "post": {
                "tags": [
                    "Authentication"
                ],
                "summary": "Sign in with email and password",
                "responses": {
                    "200": {
                        "description": "Signed in",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "401": {
                        "description": "Invalid credentials",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/LoginRequest"
                        }
                    }
                ]
            }
        },
        "/auth/logout": {
            "post": {
                "tags": [
                    "Authentication"
                ],
                "summary": "Sign out",
                "responses": {
                    "204": {
                        "description": "Signed out"
                    },
                    "401": {
                        "description": "Not signed in",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": [
                    "Authentication"
                ],
                "summary": "Current principal",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/homeworks": {
            "get": {
                "tags": [
                    "Homework"
                ],
                "summary": "Homework feed, newest first",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/homeworks/stream": {
            "get": {
                "tags": [
                    "Homework"
                ],
                "summary": "Live feed as server-sent events",
                "responses": {
                    "200": {
                        "description": "event stream"
                    }
                },
                "produces": [
                    "text/event-stream"
                ]
            }
        },
        "/homeworks/ws": {
            "get": {
                "tags": [
                    "Homework"
                ],
                "summary": "Live feed over WebSocket",
                "responses": {
                    "101": {
                        "description": "switching protocols"
                    }
                }
            }
        },
        "/homeworks/export": {
            "get": {
                "tags": [
                    "Homework"
                ],
                "summary": "Export the feed",
                "responses": {
                    "200": {
                        "description": "document"
                    },
                    "400": {
                        "description": "Unsupported format",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "format",
                        "in": "query",
                        "type": "string",
                        "enum": [
                            "csv",
                            "pdf",
                            "xlsx"
                        ]
                    }
                ]
            }
        },
        "/homeworks/{id}": {
            "get": {
                "tags": [
                    "Homework"
                ],
                "summary": "Homework detail",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Not found, meta.redirect points at the feed",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ]
            }
        },
        "/homeworks/{id}/viewer": {
            "get": {
                "tags": [
                    "Homework"
                ],
                "summary": "Swipe viewer position",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "index",
                        "in": "query",
                        "type": "integer"
                    },
                    {
                        "name": "dx",
                        "in": "query",
                        "type": "integer"
                    }
                ]
            }
        },
        "/homeworks/{id}/download": {
            "get": {
                "tags": [
                    "Homework"
                ],
                "summary": "Download all images as zip",
                "responses": {
                    "200": {
                        "description": "zip archive"
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "produces": [
                    "application/zip"
                ]
            }
        },
        "/previews/{token}": {
            "get": {
                "tags": [
                    "Teacher"
                ],
                "summary": "Preview a staged image",
                "responses": {
                    "200": {
                        "description": "image"
                    },
                    "403": {
                        "description": "Invalid or expired link",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "token",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ]
            }
        },
        "/teacher/": {
            "get": {
                "tags": [
                    "Teacher"
                ],
                "summary": "Teacher dashboard",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "401": {
                        "description": "Sign in required, meta.redirect points at the sign-in view",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/teacher/login": {
            "get": {
                "tags": [
                    "Teacher"
                ],
                "summary": "Sign-in view",
                "responses": {
                    "200": {
                        "description": "Sign-in options, or meta.redirect to the dashboard when signed in",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/teacher/homeworks/{id}": {
            "delete": {
                "tags": [
                    "Teacher"
                ],
                "summary": "Delete homework",
                "responses": {
                    "204": {
                        "description": "Deleted"
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ]
            }
        },
        "/teacher/drafts": {
            "post": {
                "tags": [
                    "Teacher"
                ],
                "summary": "Open an edit form",
                "responses": {
                    "201": {
                        "description": "Draft",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Record not found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "schema": {
                            "$ref": "#/definitions/OpenDraftRequest"
                        }
                    }
                ]
            }
        },
        "/teacher/drafts/{id}": {
            "get": {
                "tags": [
                    "Teacher"
                ],
                "summary": "Get an edit form",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ]
            },
            "patch": {
                "tags": [
                    "Teacher"
                ],
                "summary": "Update form fields",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/UpdateDraftRequest"
                        }
                    }
                ]
            },
            "delete": {
                "tags": [
                    "Teacher"
                ],
                "summary": "Abandon the form",
                "responses": {
                    "204": {
                        "description": "Discarded"
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ]
            }
        },
        "/teacher/drafts/{id}/images": {
            "post": {
                "tags": [
                    "Teacher"
                ],
                "summary": "Stage images",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "images",
                        "in": "formData",
                        "type": "file",
                        "required": true
                    }
                ]
            }
        },
        "/teacher/drafts/{id}/images/move": {
            "post": {
                "tags": [
                    "Teacher"
                ],
                "summary": "Swap two staged images",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/MoveImageRequest"
                        }
                    }
                ]
            }
        },
        "/teacher/drafts/{id}/images/existing": {
            "delete": {
                "tags": [
                    "Teacher"
                ],
                "summary": "Unstage a stored image",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "url",
                        "in": "query",
                        "required": true,
                        "type": "string"
                    }
                ]
            }
        },
        "/teacher/drafts/{id}/images/pending/{index}": {
            "delete": {
                "tags": [
                    "Teacher"
                ],
                "summary": "Unstage a pending image",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "index",
                        "in": "path",
                        "required": true,
                        "type": "integer"
                    }
                ]
            }
        },
        "/teacher/drafts/{id}/submit": {
            "post": {
                "tags": [
                    "Teacher"
                ],
                "summary": "Save the form",
                "responses": {
                    "200": {
                        "description": "Updated, meta.redirect to the dashboard",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Description required",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "502": {
                        "description": "Upload failed, meta.upload_report lists uploaded images",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ]
            }
        }
    },
    "definitions": {
        "APIError": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "string"
                },
                "message": {
                    "type": "string"
                },
                "status": {
                    "type": "integer"
                }
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {
                    "type": "object"
                },
                "error": {
                    "$ref": "#/definitions/APIError"
                },
                "meta": {
                    "type": "object"
                }
            }
        },
        "GoogleLoginRequest": {
            "type": "object",
            "required": [
                "id_token"
            ],
            "properties": {
                "id_token": {
                    "type": "string"
                }
            }
        },
        "LoginRequest": {
            "type": "object",
            "required": [
                "email",
                "password"
            ],
            "properties": {
                "email": {
                    "type": "string"
                },
                "password": {
                    "type": "string"
                }
            }
        },
        "OpenDraftRequest": {
            "type": "object",
            "properties": {
                "homework_id": {
                    "type": "string"
                }
            }
        },
        "UpdateDraftRequest": {
            "type": "object",
            "properties": {
                "date": {
                    "type": "string",
                    "format": "date"
                },
                "subject": {
                    "type": "string",
                    "enum": [
                        "Math",
                        "English",
                        "Art",
                        "General"
                    ]
                },
                "description": {
                    "type": "string"
                }
            }
        },
        "MoveImageRequest": {
            "type": "object",
            "properties": {
                "from": {
                    "type": "integer"
                },
                "to": {
                    "type": "integer"
                }
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

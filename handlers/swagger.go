package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>studentform - Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "studentform", "version": "v1.0.0" },
  "paths": {
    "/api/submit": {
      "post": {
        "summary": "Submit the student form",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","required":["name","dob","mobile","father","nationalId"],"properties":{"name":{"type":"string"},"dob":{"type":"string"},"mobile":{"type":"string"},"father":{"type":"string"},"nationalId":{"type":"string"}}}}}},
        "responses": { "201": { "description": "stored" }, "400": { "description": "invalid input" }, "429": { "description": "rate limited" } }
      }
    },
    "/api/responses": {
      "get": {
        "summary": "List submissions (session cookie or public=1)",
        "parameters": [
          {"name":"page","in":"query","schema":{"type":"integer"}},
          {"name":"limit","in":"query","schema":{"type":"integer","maximum":100}},
          {"name":"sortBy","in":"query","schema":{"type":"string","enum":["timestamp","name","dob","mobile"]}},
          {"name":"sortOrder","in":"query","schema":{"type":"string","enum":["asc","desc"]}},
          {"name":"search","in":"query","schema":{"type":"string"}},
          {"name":"startDate","in":"query","schema":{"type":"string"}},
          {"name":"endDate","in":"query","schema":{"type":"string"}},
          {"name":"mobile","in":"query","schema":{"type":"string"}},
          {"name":"nationalId","in":"query","schema":{"type":"string"}}
        ],
        "responses": { "200": { "description": "page of submissions" }, "401": { "description": "no session" } }
      }
    },
    "/api/export": {
      "get": {
        "summary": "Download submissions",
        "parameters": [
          {"name":"format","in":"query","schema":{"type":"string","enum":["csv","json","excel"]}},
          {"name":"archive","in":"query","schema":{"type":"string","enum":["1"]}}
        ],
        "responses": { "200": { "description": "file attachment or archive link" }, "401": { "description": "no session" }, "503": { "description": "archive not configured" } }
      }
    },
    "/api/login": {
      "post": { "summary": "Admin login", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"password":{"type":"string"}}}}}}, "responses": { "200": { "description": "session cookie set" }, "401": { "description": "wrong password" }, "429": { "description": "rate limited" } } },
      "get": { "summary": "Session status", "responses": { "200": { "description": "loggedIn flag" } } },
      "delete": { "summary": "Logout", "responses": { "200": { "description": "cookie cleared" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "metrics" } } } }
  }
}`

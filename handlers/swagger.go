package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the ODF document API.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg gin.IRoutes, prefix string) {
	doc := OpenAPIDoc(prefix)
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.JSON(http.StatusOK, doc)
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>odf-monitor - Swagger</title>
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

func param(name, in, typ string, required bool, desc string) gin.H {
	return gin.H{"name": name, "in": in, "required": required, "description": desc, "schema": gin.H{"type": typ}}
}

func op(summary string, params []gin.H, responses gin.H) gin.H {
	o := gin.H{"summary": summary, "tags": []string{"ODF Documents"}, "responses": responses}
	if len(params) > 0 {
		o["parameters"] = params
	}
	return o
}

func resp(code, desc string, more ...string) gin.H {
	out := gin.H{code: gin.H{"description": desc}}
	for i := 0; i+1 < len(more); i += 2 {
		out[more[i]] = gin.H{"description": more[i+1]}
	}
	return out
}

// OpenAPIDoc describes the document routes mounted under /<prefix>/odf-documents.
func OpenAPIDoc(prefix string) gin.H {
	base := "/odf-documents"
	if p := strings.Trim(prefix, "/"); p != "" {
		base = "/" + p + base
	}
	id := param("id", "path", "string", true, "Document id")
	listParams := []gin.H{
		param("page", "query", "integer", false, "Page number (with pageSize)"),
		param("pageSize", "query", "integer", false, "Page size (with page)"),
		param("competitionCode", "query", "string", false, "Exact competition code"),
		param("documentCode", "query", "string", false, "Case-insensitive substring of the document code"),
		param("documentType", "query", "string", false, "Exact document type"),
		param("documentSubtype", "query", "string", false, "Exact document subtype"),
		param("discipline", "query", "string", false, "3-letter discipline; overrides documentCode"),
		param("dateFrom", "query", "string", false, "RFC3339 or YYYY-MM-DD, inclusive"),
		param("dateTo", "query", "string", false, "RFC3339 or YYYY-MM-DD, inclusive"),
	}
	return gin.H{
		"openapi": "3.0.0",
		"info":    gin.H{"title": "odf-monitor", "version": "v1.0.0"},
		"paths": gin.H{
			base: gin.H{"get": op("List ODF documents", listParams,
				resp("200", "documents page", "400", "invalid filter or unknown discipline"))},
			base + "/disciplines/list": gin.H{"get": op("Disciplines present in XML documents", nil,
				resp("200", "sorted discipline codes"))},
			base + "/disciplines/reference": gin.H{"get": op("Registered reference disciplines", nil,
				resp("200", "sorted discipline codes"))},
			base + "/document-code/{documentCode}": gin.H{"get": op("Documents whose code contains the value",
				[]gin.H{param("documentCode", "path", "string", true, "Substring")},
				resp("200", "documents, newest first"))},
			base + "/content-hash/{hash}": gin.H{"get": op("Document by content hash",
				[]gin.H{param("hash", "path", "string", true, "Content hash")},
				resp("200", "document", "404", "not found"))},
			base + "/compare/{id1}/{id2}": gin.H{"get": op("Compare two documents",
				[]gin.H{param("id1", "path", "string", true, "First id"), param("id2", "path", "string", true, "Second id")},
				resp("200", "comparison", "400", "non-XML document", "404", "not found"))},
			base + "/{id}/parsed": gin.H{"get": op("Parsed document content", []gin.H{id},
				resp("200", "parsed XML tree or JSON", "404", "not found", "422", "malformed content"))},
			base + "/{id}": gin.H{"get": op("Document by id", []gin.H{id},
				resp("200", "document", "404", "not found"))},
			base + "/{id}/reprocess": gin.H{"post": gin.H{
				"summary":    "Re-run ingestion for a document",
				"tags":       []string{"ODF Documents"},
				"parameters": []gin.H{id},
				"requestBody": gin.H{"content": gin.H{"application/json": gin.H{"schema": gin.H{
					"type": "object", "properties": gin.H{"backendUrl": gin.H{"type": "string"}},
				}}}},
				"responses": resp("200", "reprocess result", "400", "backend not allowed", "404", "not found"),
			}},
			"/health":  gin.H{"get": op("Liveness check", nil, resp("200", "healthy"))},
			"/ready":   gin.H{"get": op("Readiness check", nil, resp("200", "ready", "503", "not ready"))},
			"/metrics": gin.H{"get": op("Prometheus metrics", nil, resp("200", "metrics"))},
		},
	}
}

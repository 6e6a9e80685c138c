package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestSwaggerEndpoints(t *testing.T) {
	g := gin.New()
	RegisterSwagger(g, "api")

	req := httptest.NewRequest("GET", "/swagger/index.html", nil)
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	require.Equal(t, 200, w.Code)
	require.Contains(t, w.Body.String(), "swagger-ui")

	req2 := httptest.NewRequest("GET", "/swagger/doc.json", nil)
	w2 := httptest.NewRecorder()
	g.ServeHTTP(w2, req2)
	require.Equal(t, 200, w2.Code)

	var doc struct {
		OpenAPI string                    `json:"openapi"`
		Paths   map[string]map[string]any `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(w2.Body.Bytes(), &doc))
	require.Equal(t, "3.0.0", doc.OpenAPI)
	require.Contains(t, doc.Paths, "/api/odf-documents")
	require.Contains(t, doc.Paths, "/api/odf-documents/compare/{id1}/{id2}")
	require.Contains(t, doc.Paths["/api/odf-documents/{id}/reprocess"], "post")
}

func TestOpenAPIDocWithoutPrefix(t *testing.T) {
	paths := OpenAPIDoc("")["paths"].(gin.H)
	require.Contains(t, paths, "/odf-documents/{id}")
}

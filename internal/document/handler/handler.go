package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/odfmonitor/odf-monitor/internal/document"
	"github.com/odfmonitor/odf-monitor/internal/document/service"
	"github.com/odfmonitor/odf-monitor/pkg/apperr"
	"github.com/odfmonitor/odf-monitor/pkg/logger"
)

// RegisterDocumentRoutes mounts the ODF document API under rg, typically
// /<prefix>/odf-documents.
func RegisterDocumentRoutes(rg *gin.RouterGroup, svc service.Service) {
	h := &documentHandler{svc: svc}
	rg.GET("", h.list)
	rg.GET("/disciplines/list", h.disciplines)
	rg.GET("/disciplines/reference", h.referenceDisciplines)
	rg.GET("/document-code/:documentCode", h.byDocumentCode)
	rg.GET("/content-hash/:hash", h.byContentHash)
	rg.GET("/compare/:id1/:id2", h.compare)
	rg.GET("/:id/parsed", h.parsed)
	rg.GET("/:id", h.get)
	rg.POST("/:id/reprocess", h.reprocess)
}

type documentHandler struct {
	svc service.Service
}

func (h *documentHandler) list(c *gin.Context) {
	filters, pagination, err := parseListQuery(c)
	if err != nil {
		writeError(c, err)
		return
	}
	res, err := h.svc.List(c.Request.Context(), filters, pagination)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *documentHandler) disciplines(c *gin.Context) {
	codes, err := h.svc.ListDisciplines(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"disciplines": codes})
}

func (h *documentHandler) referenceDisciplines(c *gin.Context) {
	codes, err := h.svc.ListReferenceDisciplines(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"disciplines": codes})
}

func (h *documentHandler) byDocumentCode(c *gin.Context) {
	docs, err := h.svc.FindByDocumentCode(c.Request.Context(), c.Param("documentCode"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

func (h *documentHandler) byContentHash(c *gin.Context) {
	d, err := h.svc.FindByContentHash(c.Request.Context(), c.Param("hash"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *documentHandler) compare(c *gin.Context) {
	res, err := h.svc.Compare(c.Request.Context(), c.Param("id1"), c.Param("id2"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *documentHandler) parsed(c *gin.Context) {
	v, err := h.svc.GetParsed(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *documentHandler) get(c *gin.Context) {
	d, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *documentHandler) reprocess(c *gin.Context) {
	var req struct {
		BackendURL string `json:"backendUrl"`
	}
	// the body is optional
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(c, apperr.Wrap(err, apperr.CodeBadRequest, "invalid request body"))
		return
	}
	res, err := h.svc.Reprocess(c.Request.Context(), c.Param("id"), req.BackendURL)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// parseListQuery reads filters and the optional page/pageSize pair. The pair
// is applied only when both are present.
func parseListQuery(c *gin.Context) (document.Filters, *document.Pagination, error) {
	f := document.Filters{
		CompetitionCode: strings.TrimSpace(c.Query("competitionCode")),
		DocumentCode:    strings.TrimSpace(c.Query("documentCode")),
		DocumentType:    strings.TrimSpace(c.Query("documentType")),
		DocumentSubtype: strings.TrimSpace(c.Query("documentSubtype")),
		Discipline:      strings.TrimSpace(c.Query("discipline")),
	}
	var err error
	if f.DateFrom, err = parseDate(c.Query("dateFrom"), false); err != nil {
		return f, nil, apperr.Newf(apperr.CodeBadRequest, "dateFrom: %v", err)
	}
	if f.DateTo, err = parseDate(c.Query("dateTo"), true); err != nil {
		return f, nil, apperr.Newf(apperr.CodeBadRequest, "dateTo: %v", err)
	}

	page, pageSize := c.Query("page"), c.Query("pageSize")
	if page == "" || pageSize == "" {
		return f, nil, nil
	}
	p := &document.Pagination{}
	if p.Page, err = strconv.Atoi(page); err != nil || p.Page < 1 {
		return f, nil, apperr.New(apperr.CodeBadRequest, "page must be a positive integer")
	}
	if p.PageSize, err = strconv.Atoi(pageSize); err != nil || p.PageSize < 1 {
		return f, nil, apperr.New(apperr.CodeBadRequest, "pageSize must be a positive integer")
	}
	return f, p, nil
}

// parseDate accepts RFC3339 or YYYY-MM-DD. With endOfDay a date-only value
// covers the whole day.
func parseDate(s string, endOfDay bool) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, errors.New("expected RFC3339 or YYYY-MM-DD")
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func statusFor(code apperr.Code) int {
	switch code {
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeBadRequest, apperr.CodeValidation:
		return http.StatusBadRequest
	case apperr.CodeParse:
		return http.StatusUnprocessableEntity
	case apperr.CodeUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, err error) {
	code := apperr.CodeOf(err)
	status := statusFor(code)
	msg := err.Error()
	switch code {
	case apperr.CodeInternal:
		logger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		msg = "internal server error"
	case apperr.CodeUnavailable:
		logger.Warnf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		msg = apperr.MessageOf(err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": string(code), "message": msg})
}

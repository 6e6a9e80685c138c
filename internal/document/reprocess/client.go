package reprocess

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/odfmonitor/odf-monitor/internal/document"
	"github.com/odfmonitor/odf-monitor/pkg/apperr"
	"github.com/odfmonitor/odf-monitor/pkg/logger"
)

const DefaultTimeout = 10 * time.Second

// Request is the body posted to the ingestion backend.
type Request struct {
	DocumentID      string `json:"documentId"`
	CompetitionCode string `json:"competitionCode"`
	DocumentCode    string `json:"documentCode"`
	DocumentType    string `json:"documentType"`
	Version         string `json:"version"`
}

type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Client asks the ingestion backend to process a stored document again.
type Client struct {
	defaultURL string
	allowed    map[string]struct{}
	http       *http.Client
}

// NewClient builds a client. Hosts in allowedHosts (and the host of
// defaultURL) may be targeted by caller-supplied URLs.
func NewClient(defaultURL string, allowedHosts []string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		defaultURL: strings.TrimSpace(defaultURL),
		allowed:    map[string]struct{}{},
		http:       &http.Client{Timeout: timeout},
	}
	for _, h := range allowedHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			c.allowed[h] = struct{}{}
		}
	}
	if u, err := url.Parse(c.defaultURL); err == nil && u.Host != "" {
		c.allowed[strings.ToLower(u.Host)] = struct{}{}
	}
	return c
}

func (c *Client) target(override string) (string, error) {
	override = strings.TrimSpace(override)
	if override == "" {
		if c.defaultURL == "" {
			return "", apperr.New(apperr.CodeBadRequest, "no reprocessing backend configured and no backendUrl supplied")
		}
		return c.defaultURL, nil
	}
	u, err := url.Parse(override)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", apperr.Newf(apperr.CodeBadRequest, "backendUrl %q must be an absolute http(s) URL", override)
	}
	if _, ok := c.allowed[strings.ToLower(u.Host)]; !ok {
		return "", apperr.Newf(apperr.CodeBadRequest, "backendUrl host %q is not allowed", u.Host)
	}
	return u.String(), nil
}

// Reprocess posts doc's identity to the backend. A non-2xx answer is a
// reported failure, not an error.
func (c *Client) Reprocess(ctx context.Context, doc *document.Document, backendURL string) (*Result, error) {
	target, err := c.target(backendURL)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(Request{
		DocumentID:      doc.ID,
		CompetitionCode: doc.CompetitionCode,
		DocumentCode:    doc.DocumentCode,
		DocumentType:    doc.DocumentType,
		Version:         doc.Version,
	})
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "encode reprocess request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeBadRequest, "build reprocess request")
	}
	req.Header.Set("Content-Type", "application/json")

	logger.Infof("reprocess: document=%s target=%s", doc.ID, req.URL.Redacted())
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeUnavailable, "reprocessing backend unreachable")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Warnf("reprocess: document=%s backend status=%d", doc.ID, resp.StatusCode)
		return &Result{Success: false, Message: fmt.Sprintf("backend responded with status %d", resp.StatusCode)}, nil
	}
	return &Result{Success: true, Message: "reprocessing started"}, nil
}

package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"agent-service/pkg/config"
)

// DocumentContentType is the single document type the ingestion vendor
// accepts.
const DocumentContentType = "application/pdf"

// ErrInvalidDocument marks a document rejected before any network call.
var ErrInvalidDocument = errors.New("invalid document")

// Document is one knowledge-base file attached to an agent draft.
type Document struct {
	Name        string
	ContentType string
	Data        []byte
}

// IngestResult is the vendor's reference to an uploaded document.
type IngestResult struct {
	ReferenceID string `json:"reference_id"`
	ContentURL  string `json:"content_url,omitempty"`
}

// VendorError carries the ingestion vendor's status code and response body
// verbatim so the caller can surface them for manual resubmission.
type VendorError struct {
	StatusCode int
	Body       string
}

func (e *VendorError) Error() string {
	return fmt.Sprintf("ingestion vendor returned %d: %s", e.StatusCode, e.Body)
}

// Client uploads knowledge-base documents to the ingestion vendor.
type Client struct {
	baseURL     string
	apiKey      string
	maxDocBytes int64
	httpClient  *http.Client
}

// NewClient creates an ingestion client from immutable configuration.
func NewClient(cfg *config.IngestConfig) *Client {
	return &Client{
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		maxDocBytes: cfg.MaxDocBytes,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
	}
}

// Ingest uploads one document for the given agent and organization. The
// document is validated before any network call; vendor failures are
// returned verbatim and never retried. There is no vendor-side delete, so
// a successful upload is permanent even if the surrounding deploy fails.
func (c *Client) Ingest(ctx context.Context, doc Document, agentID, organizationID string) (*IngestResult, error) {
	if doc.ContentType != DocumentContentType {
		return nil, fmt.Errorf("%w: %q has unsupported content type %q", ErrInvalidDocument, doc.Name, doc.ContentType)
	}
	if int64(len(doc.Data)) > c.maxDocBytes {
		return nil, fmt.Errorf("%w: %q exceeds %d byte limit", ErrInvalidDocument, doc.Name, c.maxDocBytes)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", doc.Name)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(doc.Data); err != nil {
		return nil, err
	}
	if err := writer.WriteField("agent_id", agentID); err != nil {
		return nil, err
	}
	if err := writer.WriteField("organization_id", organizationID); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/v1/documents", c.baseURL), &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &VendorError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result IngestResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse ingestion response: %w", err)
	}

	return &result, nil
}

// Package airtable provides a client for the AlohaCamp property directory
// hosted in Airtable.
package airtable

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/alohacamp/leadcheck/internal/model"
)

// Client defines the directory search operations.
type Client interface {
	// SearchProperties returns directory records whose property name
	// contains the given name, case-insensitively.
	SearchProperties(ctx context.Context, propertyName string) ([]model.Candidate, error)
}

const maxRecords = 20

// record is a raw Airtable row. Fields is decoded loosely because a base
// carries arbitrary column types (numbers, checkboxes, attachments)
// alongside the property name.
type record struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

type listResponse struct {
	Records []record `json:"records"`
}

// Option configures the Airtable client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTable overrides the directory table name.
func WithTable(table string) Option {
	return func(c *httpClient) {
		c.table = table
	}
}

type httpClient struct {
	token   string
	baseID  string
	table   string
	baseURL string
	http    *http.Client
}

// NewClient creates a new Airtable directory client.
func NewClient(token, baseID string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		baseID:  baseID,
		table:   "Properties v2",
		baseURL: "https://api.airtable.com/v0",
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) SearchProperties(ctx context.Context, propertyName string) ([]model.Candidate, error) {
	if propertyName == "" {
		return nil, nil
	}

	// Single quotes must be escaped inside the Airtable formula literal.
	safeName := strings.ReplaceAll(propertyName, "'", `\'`)
	formula := fmt.Sprintf("SEARCH(LOWER('%s'), LOWER({Property Name}))", safeName)

	reqURL := fmt.Sprintf("%s/%s/%s?%s",
		c.baseURL,
		url.PathEscape(c.baseID),
		url.PathEscape(c.table),
		url.Values{
			"filterByFormula": {formula},
			"maxRecords":      {fmt.Sprint(maxRecords)},
		}.Encode(),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "airtable: create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "airtable: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "airtable: read response body")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("airtable: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var lr listResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return nil, eris.Wrap(err, "airtable: decode response")
	}

	candidates := make([]model.Candidate, 0, len(lr.Records))
	for _, r := range lr.Records {
		candidates = append(candidates, toCandidate(r))
	}
	return candidates, nil
}

// toCandidate maps a raw directory row onto the canonical candidate record.
// The base has carried the property name under two different column names
// over time, so both are consulted here and nowhere else.
func toCandidate(r record) model.Candidate {
	name := stringField(r.Fields, "Property Name")
	if name == "" {
		name = stringField(r.Fields, "Name")
	}
	return model.Candidate{
		ID:           r.ID,
		Category:     model.CategoryDirectory,
		PropertyName: name,
	}
}

// stringField reads a field value, ignoring non-string column types.
func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return s
}

// Package hubspot provides a client for the HubSpot CRM v3 search API.
package hubspot

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/alohacamp/leadcheck/internal/model"
)

// Client defines the HubSpot search operations used by the duplicate checker.
type Client interface {
	// SearchContactsByEmail returns contacts whose email equals email exactly.
	SearchContactsByEmail(ctx context.Context, email string) ([]model.Candidate, error)
	// SearchContactsByPhone returns contacts whose phone equals the E.164 value exactly.
	SearchContactsByPhone(ctx context.Context, phone string) ([]model.Candidate, error)
	// SearchContactsByName returns contacts matching the given name parts by
	// token containment. Empty parts contribute no filter.
	SearchContactsByName(ctx context.Context, firstName, lastName string) ([]model.Candidate, error)
	// SearchDealsByName returns deals whose name contains the given tokens.
	SearchDealsByName(ctx context.Context, propertyName string) ([]model.Candidate, error)
}

const (
	exactSearchLimit = 10
	tokenSearchLimit = 20
)

var contactProperties = []string{"email", "firstname", "lastname", "phone", "company"}

// filter is a single HubSpot search predicate.
type filter struct {
	PropertyName string `json:"propertyName"`
	Operator     string `json:"operator"`
	Value        string `json:"value"`
}

// searchRequest is the CRM v3 search payload.
type searchRequest struct {
	FilterGroups []filterGroup `json:"filterGroups"`
	Properties   []string      `json:"properties"`
	Limit        int           `json:"limit"`
}

type filterGroup struct {
	Filters []filter `json:"filters"`
}

// searchResponse is the CRM v3 search result envelope.
type searchResponse struct {
	Total   int            `json:"total"`
	Results []searchResult `json:"results"`
}

type searchResult struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
}

// Option configures the HubSpot client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit sets a per-second rate limit for API calls. A burst equal
// to the integer portion of rps is allowed.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

type httpClient struct {
	token   string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a new HubSpot CRM client.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		baseURL: "https://api.hubapi.com",
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// wait blocks until the rate limiter allows one event, or ctx is cancelled.
func (c *httpClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// retryableStatusCode returns true if the HTTP status code should trigger a retry.
func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable
}

// post executes a search request with exponential backoff retries on
// transient failures (429, 500, 502, 503).
func (c *httpClient) post(ctx context.Context, path string, payload any) ([]byte, error) {
	if err := c.wait(ctx); err != nil {
		return nil, eris.Wrap(err, "hubspot: rate limit")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "hubspot: marshal request")
	}

	const maxAttempts = 3
	backoff := 1 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, eris.Wrap(err, "hubspot: create request")
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = eris.Wrap(err, "hubspot: request")
			if attempt < maxAttempts {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(backoff):
				}
				backoff *= 2
				continue
			}
			return nil, lastErr
		}

		respBody, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, eris.Wrap(readErr, "hubspot: read response body")
		}

		if retryableStatusCode(resp.StatusCode) && attempt < maxAttempts {
			lastErr = eris.Errorf("hubspot: status %d: %s", resp.StatusCode, string(respBody))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			continue
		}

		if resp.StatusCode != http.StatusOK {
			return nil, eris.Errorf("hubspot: unexpected status %d: %s", resp.StatusCode, string(respBody))
		}
		return respBody, nil
	}

	return nil, lastErr
}

// search runs one CRM object search and translates the raw response into
// canonical candidates. Upstream response shapes are never inspected
// outside this boundary.
func (c *httpClient) search(ctx context.Context, objectType string, category model.Category, req searchRequest) ([]model.Candidate, error) {
	body, err := c.post(ctx, "/crm/v3/objects/"+objectType+"/search", req)
	if err != nil {
		return nil, err
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, eris.Wrapf(err, "hubspot: decode %s search response", objectType)
	}

	candidates := make([]model.Candidate, 0, len(sr.Results))
	for _, r := range sr.Results {
		candidates = append(candidates, toCandidate(r, category))
	}
	return candidates, nil
}

// toCandidate maps one raw search result onto the canonical candidate record.
func toCandidate(r searchResult, category model.Category) model.Candidate {
	c := model.Candidate{
		ID:       r.ID,
		Category: category,
	}
	switch category {
	case model.CategoryContact:
		c.Email = r.Properties["email"]
		c.Phone = r.Properties["phone"]
		c.FirstName = r.Properties["firstname"]
		c.LastName = r.Properties["lastname"]
		c.Company = r.Properties["company"]
	case model.CategoryDeal:
		c.PropertyName = r.Properties["dealname"]
	}
	return c
}

func (c *httpClient) SearchContactsByEmail(ctx context.Context, email string) ([]model.Candidate, error) {
	if email == "" {
		return nil, nil
	}
	return c.search(ctx, "contacts", model.CategoryContact, searchRequest{
		FilterGroups: []filterGroup{{Filters: []filter{
			{PropertyName: "email", Operator: "EQ", Value: email},
		}}},
		Properties: contactProperties,
		Limit:      exactSearchLimit,
	})
}

func (c *httpClient) SearchContactsByPhone(ctx context.Context, phone string) ([]model.Candidate, error) {
	if phone == "" {
		return nil, nil
	}
	return c.search(ctx, "contacts", model.CategoryContact, searchRequest{
		FilterGroups: []filterGroup{{Filters: []filter{
			{PropertyName: "phone", Operator: "EQ", Value: phone},
		}}},
		Properties: contactProperties,
		Limit:      exactSearchLimit,
	})
}

func (c *httpClient) SearchContactsByName(ctx context.Context, firstName, lastName string) ([]model.Candidate, error) {
	var filters []filter
	if firstName != "" {
		filters = append(filters, filter{PropertyName: "firstname", Operator: "CONTAINS_TOKEN", Value: firstName})
	}
	if lastName != "" {
		filters = append(filters, filter{PropertyName: "lastname", Operator: "CONTAINS_TOKEN", Value: lastName})
	}
	if len(filters) == 0 {
		return nil, nil
	}
	return c.search(ctx, "contacts", model.CategoryContact, searchRequest{
		FilterGroups: []filterGroup{{Filters: filters}},
		Properties:   contactProperties,
		Limit:        tokenSearchLimit,
	})
}

func (c *httpClient) SearchDealsByName(ctx context.Context, propertyName string) ([]model.Candidate, error) {
	if propertyName == "" {
		return nil, nil
	}
	return c.search(ctx, "deals", model.CategoryDeal, searchRequest{
		FilterGroups: []filterGroup{{Filters: []filter{
			{PropertyName: "dealname", Operator: "CONTAINS_TOKEN", Value: propertyName},
		}}},
		Properties: []string{"dealname", "dealstage", "amount", "closedate"},
		Limit:      tokenSearchLimit,
	})
}

package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	// DefaultBaseURL is the Primo search REST endpoint.
	DefaultBaseURL = "https://api-na.hosted.exlibrisgroup.com/primo/v1/search"

	// DefaultTimeout bounds one HTTP round trip.
	DefaultTimeout = 20 * time.Second

	DefaultVID   = "56UAH_INST:56UAH_INST"
	DefaultTab   = "Everything"
	DefaultScope = "MyInst_and_CI"
)

// Primo is a client for the Primo discovery search API.
type Primo struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	vid        string
	tab        string
	scope      string
}

// PrimoOption configures a Primo client.
type PrimoOption func(*Primo)

// WithAPIKey sets the API key sent with every request.
func WithAPIKey(key string) PrimoOption {
	return func(p *Primo) { p.apiKey = key }
}

// WithBaseURL sets a custom endpoint (for testing).
func WithBaseURL(u string) PrimoOption {
	return func(p *Primo) { p.baseURL = u }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) PrimoOption {
	return func(p *Primo) { p.httpClient = hc }
}

// WithView selects the discovery view, tab and search scope.
// Empty arguments keep the defaults.
func WithView(vid, tab, scope string) PrimoOption {
	return func(p *Primo) {
		if vid != "" {
			p.vid = vid
		}
		if tab != "" {
			p.tab = tab
		}
		if scope != "" {
			p.scope = scope
		}
	}
}

// NewPrimo creates a Primo client.
func NewPrimo(opts ...PrimoOption) *Primo {
	p := &Primo{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		baseURL:    DefaultBaseURL,
		vid:        DefaultVID,
		tab:        DefaultTab,
		scope:      DefaultScope,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Lookup runs a keyword search and returns the first document that yields
// a complete record.
func (p *Primo) Lookup(ctx context.Context, term string) (*Record, error) {
	params := url.Values{}
	params.Set("vid", p.vid)
	params.Set("tab", p.tab)
	params.Set("scope", p.scope)
	params.Set("q", "any,contains,"+term)
	params.Set("offset", "0")
	params.Set("limit", "5")
	if p.apiKey != "" {
		params.Set("apikey", p.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()

	if err := checkHTTPErrors(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var result searchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	for _, doc := range result.Docs {
		if rec := doc.record(); rec.Complete() {
			return rec, nil
		}
	}
	return nil, nil
}

func checkHTTPErrors(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrAuthError, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	case resp.StatusCode >= 400:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{StatusCode: resp.StatusCode, Message: string(msg)}
	}
	return nil
}

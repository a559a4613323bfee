// Package client provides the HTTP client for the remote content delivery API:
// canonical story and list lookups plus a raw query path for parameters the
// canonical calls do not model.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/content-cache/pkg/logging"
	"github.com/Sternrassler/content-cache/pkg/query"
	"github.com/Sternrassler/content-cache/pkg/story"
)

// Prometheus metrics for content API operations.
var (
	apiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "content_api_requests_total",
		Help: "Total content API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	apiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "content_api_request_duration_seconds",
		Help:    "Content API request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"endpoint"})

	apiErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "content_api_errors_total",
		Help: "Total content API errors by class",
	}, []string{"class"})
)

// StoriesEndpoint is the path of the stories resource relative to BaseURL.
const StoriesEndpoint = "stories"

// TotalHeader carries the total item count of a list response.
const TotalHeader = "Total"

// Client talks to the content delivery API. It never retries; the timeout
// of the underlying http.Client bounds every call.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the delivery API, e.g. https://api.storyblok.com/v2/cdn
	BaseURL string

	// Token is the space access token (sent as the token query parameter).
	Token string

	// UserAgent header sent on every request.
	UserAgent string

	// Timeout for a single request.
	Timeout time.Duration
}

// DefaultConfig returns a default configuration for the given access token.
func DefaultConfig(token string) Config {
	return Config{
		BaseURL:   "https://api.storyblok.com/v2/cdn",
		Token:     token,
		UserAgent: "content-cache/1.0",
		Timeout:   10 * time.Second,
	}
}

// New creates a new content API client.
func New(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("token is required")
	}

	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}

	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be > 0 (got %s)", cfg.Timeout)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: base,
		config:  cfg,
		logger:  logging.NewLogger("content-client"),
	}, nil
}

// RawResponse is an undecoded API response.
type RawResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Raw performs a GET on endpoint with arbitrary parameters. Status codes >= 400
// are returned as *APIError.
func (c *Client) Raw(ctx context.Context, endpoint string, params url.Values) (*RawResponse, error) {
	endpoint = strings.Trim(endpoint, "/")
	label := endpointLabel(endpoint)

	startTime := time.Now()
	defer func() {
		apiRequestDuration.WithLabelValues(label).Observe(time.Since(startTime).Seconds())
	}()

	u := c.baseURL.ResolveReference(&url.URL{Path: endpoint})
	q := url.Values{}
	for k, vs := range params {
		q[k] = append([]string(nil), vs...)
	}
	q.Set("token", c.config.Token)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("endpoint", endpoint).
		Msg("Executing content API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		apiErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		apiRequestsTotal.WithLabelValues(label, "network_error").Inc()
		c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
		return nil, &APIError{Class: ErrorClassNetwork, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		apiErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, &APIError{StatusCode: resp.StatusCode, Class: ErrorClassNetwork, Message: "read body", Err: err}
	}

	apiRequestsTotal.WithLabelValues(label, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode >= 400 {
		class := classify(resp.StatusCode, nil)
		apiErrorsTotal.WithLabelValues(string(class)).Inc()
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("Content API request error")
		return nil, &APIError{StatusCode: resp.StatusCode, Class: class, Message: resp.Status}
	}

	return &RawResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       body,
	}, nil
}

// Stories runs the canonical list query.
func (c *Client) Stories(ctx context.Context, req *query.Request) (*story.ListResponse, error) {
	return c.list(ctx, req, req.Query())
}

// StoriesByContentType lists stories whose root component is contentType.
func (c *Client) StoriesByContentType(ctx context.Context, req *query.Request, contentType string) (*story.ListResponse, error) {
	q := req.Query()
	q.Set(query.ParamContentType, contentType)
	return c.list(ctx, req, q)
}

// StoriesByUUIDs lists the given stories. With keepOrder the API returns them
// in the order of uuids.
func (c *Client) StoriesByUUIDs(ctx context.Context, req *query.Request, uuids []string, keepOrder bool) (*story.ListResponse, error) {
	q := req.Query()
	param := query.ParamByUUIDs
	if keepOrder {
		param = query.ParamByUUIDsOrdered
	}
	q.Set(param, strings.Join(uuids, ","))
	return c.list(ctx, req, q)
}

// StoryBySlug fetches a single story by its full slug.
func (c *Client) StoryBySlug(ctx context.Context, slug string, req query.StoryRequest) (*story.ItemResponse, error) {
	return c.item(ctx, StoriesEndpoint+"/"+strings.Trim(slug, "/"), req.Query())
}

// StoryByID fetches a single story by numeric id.
func (c *Client) StoryByID(ctx context.Context, id int64, req query.StoryRequest) (*story.ItemResponse, error) {
	return c.item(ctx, StoriesEndpoint+"/"+strconv.FormatInt(id, 10), req.Query())
}

// StoryByUUID fetches a single story by uuid.
func (c *Client) StoryByUUID(ctx context.Context, uuid string, req query.StoryRequest) (*story.ItemResponse, error) {
	q := req.Query()
	q.Set("find_by", "uuid")
	return c.item(ctx, StoriesEndpoint+"/"+uuid, q)
}

func (c *Client) list(ctx context.Context, req *query.Request, params url.Values) (*story.ListResponse, error) {
	raw, err := c.Raw(ctx, StoriesEndpoint, params)
	if err != nil {
		return nil, err
	}
	return DecodeStories(raw, req.Page, req.PerPage)
}

func (c *Client) item(ctx context.Context, endpoint string, params url.Values) (*story.ItemResponse, error) {
	raw, err := c.Raw(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}
	return DecodeStory(raw)
}

// DecodeStories decodes a list body and fills pagination from the Total header
// and the requested page.
func DecodeStories(raw *RawResponse, page, perPage int) (*story.ListResponse, error) {
	var resp story.ListResponse
	if err := json.Unmarshal(raw.Body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	resp.Page = page
	resp.PerPage = perPage
	resp.Total = len(resp.Stories)
	if total, err := strconv.Atoi(raw.Header.Get(TotalHeader)); err == nil {
		resp.Total = total
	}
	return &resp, nil
}

// DecodeStory decodes a single story body.
func DecodeStory(raw *RawResponse) (*story.ItemResponse, error) {
	var resp story.ItemResponse
	if err := json.Unmarshal(raw.Body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if resp.Story.ID == 0 && resp.Story.UUID == "" {
		return nil, fmt.Errorf("%w: response has no story", ErrDecode)
	}
	return &resp, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// endpointLabel keeps metric cardinality bounded: stories/<anything> collapses
// to stories/:id.
func endpointLabel(endpoint string) string {
	if i := strings.IndexByte(endpoint, '/'); i >= 0 {
		return endpoint[:i] + "/:id"
	}
	return endpoint
}

package cdn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/replica/internal/core/domain"
	"github.com/custodia-labs/replica/internal/core/ports/driven"
	"github.com/custodia-labs/replica/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.RemoteClient = (*Client)(nil)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultPageSize is the page size when a request sets none.
	DefaultPageSize = 100

	// maxErrorBody bounds how much of an error response is read.
	maxErrorBody = 4096
)

// ErrMissingSpace indicates the client was configured without a space id.
var ErrMissingSpace = errors.New("cdn: space is required")

// Client talks to one environment of one space.
type Client struct {
	http        *http.Client
	base        string
	rateLimiter *RateLimiter
}

// NewClient creates a client for cfg.Space / cfg.Environment.
// The access token, when set, is sent as a bearer token.
func NewClient(cfg domain.Config) (*Client, error) {
	if cfg.Space == "" {
		return nil, ErrMissingSpace
	}
	env := cfg.Environment
	if env == "" {
		env = "master"
	}
	baseURL := strings.TrimRight(cfg.Remote.BaseURL, "/")
	if baseURL == "" {
		baseURL = domain.DefaultConfig().Remote.BaseURL
	}

	hc := &http.Client{}
	if cfg.Remote.AccessToken != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Remote.AccessToken})
		hc = oauth2.NewClient(context.Background(), ts)
	}
	hc.Timeout = cfg.Remote.Timeout.Std()
	if hc.Timeout <= 0 {
		hc.Timeout = DefaultTimeout
	}

	return &Client{
		http:        hc,
		base:        fmt.Sprintf("%s/spaces/%s/environments/%s", baseURL, url.PathEscape(cfg.Space), url.PathEscape(env)),
		rateLimiter: NewRateLimiter(cfg.Remote.RequestsPerSecond, cfg.Remote.Burst),
	}, nil
}

// collection is a delivery API response.
type collection struct {
	Total    int                `json:"total"`
	Skip     int                `json:"skip"`
	Limit    int                `json:"limit"`
	Items    []*domain.Document `json:"items"`
	Includes struct {
		Entry []*domain.Document `json:"Entry"`
		Asset []*domain.Document `json:"Asset"`
	} `json:"includes"`
}

// syncResponse is a sync API response.
type syncResponse struct {
	Items       []*domain.Document `json:"items"`
	NextPageURL string             `json:"nextPageUrl"`
	NextSyncURL string             `json:"nextSyncUrl"`
}

// GetPage runs one delivery API query. NextToken is the skip offset of the next page.
func (c *Client) GetPage(ctx context.Context, req domain.PageRequest) (*domain.Page, error) {
	path := "/entries"
	if req.Kind == domain.KindAsset {
		path = "/assets"
	}
	params, err := pageParams(req, DefaultPageSize)
	if err != nil {
		return nil, err
	}

	var resp collection
	if err := c.get(ctx, path, params, &resp); err != nil {
		return nil, err
	}

	page := &domain.Page{
		Items:    resp.Items,
		Includes: append(resp.Includes.Entry, resp.Includes.Asset...),
		Total:    resp.Total,
	}
	if next := resp.Skip + len(resp.Items); len(resp.Items) > 0 && next < resp.Total {
		page.HasNext = true
		page.NextToken = strconv.Itoa(next)
	}
	return page, nil
}

// GetSyncPage fetches one page of the sync stream. An empty token starts an initial sync.
func (c *Client) GetSyncPage(ctx context.Context, token string) (*domain.SyncPage, error) {
	params := url.Values{}
	if token == "" {
		params.Set("initial", "true")
	} else {
		params.Set("sync_token", token)
	}

	var resp syncResponse
	if err := c.get(ctx, "/sync", params, &resp); err != nil {
		return nil, err
	}

	page := &domain.SyncPage{Items: resp.Items}
	next := resp.NextSyncURL
	if resp.NextPageURL != "" {
		page.HasMore = true
		next = resp.NextPageURL
	}
	nextToken, err := syncToken(next)
	if err != nil {
		return nil, err
	}
	page.NextToken = nextToken
	return page, nil
}

// get sends one throttled GET request and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return err
	}

	u := c.base + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("cdn: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	logger.Debug("cdn: GET %s", u)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("cdn: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if err := c.rateLimiter.CheckRateLimit(resp); err != nil {
		logger.Warn("%v", err)
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(resp.Body), URL: u}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("cdn: decode %s: %w", path, err)
	}
	return nil
}

// errorMessage extracts the message of an error body, or the raw text.
func errorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}
	var e struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &e) == nil && e.Message != "" {
		return e.Message
	}
	return strings.TrimSpace(string(data))
}

package data

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"sort"
	"strings"
	"time"

	"factorview/internal/logging"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// ErrEmptyName is returned when a factor or strategy name is blank.
var ErrEmptyName = errors.New("name must not be empty")

// ErrInvalidName is returned for names that would change the request path
// once resolved, such as "." and "..".
var ErrInvalidName = errors.New("name must not be a dot segment")

// ErrMalformedPayload is returned when a 2xx response body is not valid JSON.
var ErrMalformedPayload = errors.New("malformed response payload")

// Params is a query parameter bag forwarded to the backend verbatim.
// Slice values repeat the key once per element; nil values are skipped.
type Params map[string]any

// Payload is the backend response body, returned unchanged.
type Payload = json.RawMessage

// Observer is notified after every request. status is 0 when the request
// never produced a response.
type Observer interface {
	ObserveRequest(endpoint string, status int, elapsed time.Duration)
}

// maxErrorBody is the number of runes of a response body kept in Error().
const maxErrorBody = 200

// APIError represents a non-2xx response from the backend.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
	Body       []byte
}

func (e *APIError) Error() string {
	msg := strings.TrimSpace(string(e.Body))
	if r := []rune(msg); len(r) > maxErrorBody {
		msg = string(r[:maxErrorBody]) + "..."
	}
	if msg == "" {
		return fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.Status)
	}
	return fmt.Sprintf("%s %s: %s: %s", e.Method, e.URL, e.Status, msg)
}

// Client talks to the factor/strategy analytics backend. It holds no
// mutable state and is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	observer   Observer
	log        zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the timeout of the default *http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithObserver registers an Observer for request outcomes.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// New creates a client for the absolute base URL. The base URL is fixed for
// the lifetime of the client.
func New(baseURL string, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: must be absolute", baseURL)
	}
	c := &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        logging.Component("data"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the prefix prepended to every request path.
func (c *Client) BaseURL() string { return c.baseURL }

// Get issues one GET to path with params and returns the raw body.
func (c *Client) Get(ctx context.Context, path string, params Params) (Payload, error) {
	return c.get(ctx, path, path, params)
}

// get reports outcomes to the observer under endpoint, the unexpanded path
// template, so named resources share one label.
func (c *Client) get(ctx context.Context, endpoint, path string, params Params) (Payload, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("invalid request URL: %w", err)
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.log.Debug().Str("method", req.Method).Str("path", u.Path).Str("query", u.RawQuery).Msg("request")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.observe(endpoint, 0, elapsed)
		c.log.Debug().Err(err).Str("path", u.Path).Dur("duration", elapsed).Msg("request failed")
		return nil, fmt.Errorf("GET %s: %w", u.Path, err)
	}
	defer resp.Body.Close()
	c.observe(endpoint, resp.StatusCode, elapsed)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("GET %s: read body: %w", u.Path, err)
	}

	c.log.Debug().Int("status", resp.StatusCode).Str("path", u.Path).Dur("duration", elapsed).Int("bytes", len(body)).Msg("response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			Method:     req.Method,
			URL:        u.String(),
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       body,
		}
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("GET %s: %w", u.Path, ErrMalformedPayload)
	}
	return Payload(body), nil
}

func (c *Client) observe(endpoint string, status int, elapsed time.Duration) {
	if c.observer != nil {
		c.observer.ObserveRequest(endpoint, status, elapsed)
	}
}

// Encode renders the bag as a query string with keys in sorted order.
func (p Params) Encode() string {
	if len(p) == 0 {
		return ""
	}
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		for _, v := range queryValues(p[k]) {
			if sb.Len() > 0 {
				sb.WriteByte('&')
			}
			sb.WriteString(url.QueryEscape(k))
			sb.WriteByte('=')
			sb.WriteString(url.QueryEscape(v))
		}
	}
	return sb.String()
}

func queryValues(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return []string{t}
	case []string:
		return t
	case time.Time:
		return []string{t.Format(time.RFC3339Nano)}
	case fmt.Stringer:
		return []string{t.String()}
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			return []string{string(rv.Bytes())}
		}
		out := make([]string, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out = append(out, queryValues(rv.Index(i).Interface())...)
		}
		return out
	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
		return queryValues(rv.Elem().Interface())
	}
	return []string{fmt.Sprint(v)}
}

func namedPath(prefix, name, suffix string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", ErrEmptyName
	}
	if name == "." || name == ".." {
		return "", ErrInvalidName
	}
	return prefix + "/" + url.PathEscape(name) + suffix, nil
}

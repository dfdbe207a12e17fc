package data

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method   string
	path     string
	rawPath  string
	query    url.Values
	rawQuery string
}

func newBackend(t *testing.T, status int, body string) (*httptest.Server, *[]recorded) {
	t.Helper()
	var mu sync.Mutex
	var reqs []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		reqs = append(reqs, recorded{
			method:   r.Method,
			path:     r.URL.Path,
			rawPath:  r.URL.EscapedPath(),
			query:    r.URL.Query(),
			rawQuery: r.URL.RawQuery,
		})
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &reqs
}

func newTestClient(t *testing.T, srv *httptest.Server, opts ...Option) *Client {
	t.Helper()
	c, err := New(srv.URL, append([]Option{WithHTTPClient(srv.Client())}, opts...)...)
	require.NoError(t, err)
	return c
}

func TestNewRejectsRelativeBase(t *testing.T) {
	_, err := New("/api")
	assert.Error(t, err)
	_, err = New("127.0.0.1:5000")
	assert.Error(t, err)

	c, err := New("http://127.0.0.1:5000/")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:5000", c.BaseURL())
}

func TestEndpoints(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		call func(c *Client, p Params) (Payload, error)
		path string
	}{
		{"factor info", func(c *Client, p Params) (Payload, error) { return c.FactorInfo(ctx, p) }, "/api/factor"},
		{"factor stats", func(c *Client, p Params) (Payload, error) { return c.FactorStats(ctx, p) }, "/api/factor/stats"},
		{"factor stats backtest", func(c *Client, p Params) (Payload, error) { return c.FactorStatsBacktest(ctx, p) }, "/api/factor/stats/backtest"},
		{"factor stats group", func(c *Client, p Params) (Payload, error) { return c.FactorStatsGroup(ctx, p) }, "/api/factor/stats/group"},
		{"factor stats ic", func(c *Client, p Params) (Payload, error) { return c.FactorStatsIC(ctx, p) }, "/api/factor/stats/ic"},
		{"factor perf", func(c *Client, p Params) (Payload, error) { return c.FactorPerf(ctx, "momentum_12m", p) }, "/api/factor/momentum_12m"},
		{"factor update", func(c *Client, p Params) (Payload, error) { return c.FactorUpdate(ctx, p) }, "/api/factor/update"},
		{"strategies", func(c *Client, p Params) (Payload, error) { return c.Strategies(ctx, p) }, "/api/strategy"},
		{"strategy perf", func(c *Client, p Params) (Payload, error) { return c.StrategyPerf(ctx, "alpha_v1", p) }, "/api/strategy/alpha_v1"},
		{"strategy factors", func(c *Client, p Params) (Payload, error) { return c.StrategyFactorPerf(ctx, "alpha_v1", p) }, "/api/strategy/alpha_v1/factors"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, reqs := newBackend(t, http.StatusOK, `{"ok":true}`)
			c := newTestClient(t, srv)

			got, err := tt.call(c, Params{"pool": "all", "benchmark_index": "000905.SH"})
			require.NoError(t, err)
			assert.JSONEq(t, `{"ok":true}`, string(got))

			require.Len(t, *reqs, 1)
			r := (*reqs)[0]
			assert.Equal(t, http.MethodGet, r.method)
			assert.Equal(t, tt.path, r.path)
			assert.Equal(t, url.Values{"pool": {"all"}, "benchmark_index": {"000905.SH"}}, r.query)
		})
	}
}

func TestFactorPerfScenario(t *testing.T) {
	body := `{"ic":{"values":[[0.1,null]],"index":["2020-01-02"]}}`
	srv, reqs := newBackend(t, http.StatusOK, body)
	c := newTestClient(t, srv)

	got, err := c.FactorPerf(context.Background(), "momentum_12m", Params{"start": "2020-01-01", "end": "2020-12-31"})
	require.NoError(t, err)
	assert.Equal(t, body, string(got))

	require.Len(t, *reqs, 1)
	assert.Equal(t, "/api/factor/momentum_12m", (*reqs)[0].path)
	assert.Equal(t, url.Values{"start": {"2020-01-01"}, "end": {"2020-12-31"}}, (*reqs)[0].query)
}

func TestBaseURLPathPrefix(t *testing.T) {
	srv, reqs := newBackend(t, http.StatusOK, `[]`)
	c, err := New(srv.URL+"/api/", WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	_, err = c.Strategies(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "/api/api/strategy", (*reqs)[0].path)
	assert.Empty(t, (*reqs)[0].rawQuery)
}

func TestNamedPathEscaped(t *testing.T) {
	srv, reqs := newBackend(t, http.StatusOK, `{}`)
	c := newTestClient(t, srv)

	_, err := c.StrategyPerf(context.Background(), "a/b c", nil)
	require.NoError(t, err)
	assert.Equal(t, "/api/strategy/a%2Fb%20c", (*reqs)[0].rawPath)
	assert.NotContains(t, (*reqs)[0].rawPath, "{")
}

func TestEmptyNameRejected(t *testing.T) {
	srv, reqs := newBackend(t, http.StatusOK, `{}`)
	c := newTestClient(t, srv)
	ctx := context.Background()

	_, err := c.FactorPerf(ctx, "", nil)
	assert.ErrorIs(t, err, ErrEmptyName)
	_, err = c.StrategyPerf(ctx, "  ", nil)
	assert.ErrorIs(t, err, ErrEmptyName)
	_, err = c.StrategyFactorPerf(ctx, "", nil)
	assert.ErrorIs(t, err, ErrEmptyName)
	assert.Empty(t, *reqs)
}

func TestDotSegmentNameRejected(t *testing.T) {
	srv, reqs := newBackend(t, http.StatusOK, `{}`)
	c := newTestClient(t, srv)
	ctx := context.Background()

	_, err := c.StrategyFactorPerf(ctx, "..", nil)
	assert.ErrorIs(t, err, ErrInvalidName)
	_, err = c.FactorPerf(ctx, ".", nil)
	assert.ErrorIs(t, err, ErrInvalidName)
	assert.Empty(t, *reqs)

	_, err = c.StrategyPerf(ctx, "v1.2", nil)
	require.NoError(t, err)
	assert.Equal(t, "/api/strategy/v1.2", (*reqs)[0].path)
}

func TestTimeParamKeepsInstant(t *testing.T) {
	srv, reqs := newBackend(t, http.StatusOK, `{}`)
	c := newTestClient(t, srv)

	asof := time.Date(2020, 1, 1, 15, 30, 0, 0, time.UTC)
	_, err := c.FactorInfo(context.Background(), Params{"asof": asof})
	require.NoError(t, err)
	assert.Equal(t, "2020-01-01T15:30:00Z", (*reqs)[0].query.Get("asof"))
}

func TestAPIErrorTruncatesOnRune(t *testing.T) {
	err := &APIError{Method: http.MethodGet, URL: "/api/factor", Status: "500 Internal Server Error", Body: []byte(strings.Repeat("因", 250))}
	msg := err.Error()
	assert.True(t, utf8.ValidString(msg))
	assert.Contains(t, msg, strings.Repeat("因", maxErrorBody)+"...")
	assert.NotContains(t, msg, strings.Repeat("因", maxErrorBody+1))
}

func TestServerErrorNoRetry(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"boom"}`))
	}))
	defer srv.Close()
	c := newTestClient(t, srv)

	_, err := c.FactorStats(context.Background(), nil)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.JSONEq(t, `{"detail":"boom"}`, string(apiErr.Body))
	assert.Contains(t, err.Error(), "500")
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestMalformedPayload(t *testing.T) {
	srv, _ := newBackend(t, http.StatusOK, `<html>oops`)
	c := newTestClient(t, srv)

	_, err := c.FactorInfo(context.Background(), nil)
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := New(base)
	require.NoError(t, err)
	_, err = c.FactorInfo(context.Background(), nil)
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestContextCancelled(t *testing.T) {
	srv, _ := newBackend(t, http.StatusOK, `{}`)
	c := newTestClient(t, srv)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.FactorInfo(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

type fakeObserver struct {
	mu    sync.Mutex
	calls []string
	codes []int
}

func (f *fakeObserver) ObserveRequest(endpoint string, status int, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, endpoint)
	f.codes = append(f.codes, status)
}

func TestObserverUsesTemplate(t *testing.T) {
	srv, _ := newBackend(t, http.StatusOK, `{}`)
	obs := &fakeObserver{}
	c := newTestClient(t, srv, WithObserver(obs))

	_, err := c.StrategyFactorPerf(context.Background(), "alpha_v1", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{StrategyFactorPerfPath}, obs.calls)
	assert.Equal(t, []int{http.StatusOK}, obs.codes)
}

func TestParamsEncode(t *testing.T) {
	start := time.Date(2020, 1, 1, 15, 30, 0, 0, time.UTC)
	p := Params{
		"factor_names[]": []string{"mom", "value"},
		"pool":           "all",
		"top":            10,
		"flag":           true,
		"start_date":     start,
		"skip":           nil,
		"ids":            []int{1, 2},
	}
	assert.Equal(t,
		"factor_names%5B%5D=mom&factor_names%5B%5D=value&flag=true&ids=1&ids=2&pool=all&start_date=2020-01-01T15%3A30%3A00Z&top=10",
		p.Encode())
	assert.Equal(t, "", Params(nil).Encode())
}

func TestConcurrentCalls(t *testing.T) {
	srv, reqs := newBackend(t, http.StatusOK, `{}`)
	c := newTestClient(t, srv)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.FactorStatsIC(context.Background(), Params{"pool": "all"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Len(t, *reqs, 8)
}

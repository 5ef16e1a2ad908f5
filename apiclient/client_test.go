package apiclient_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cienspay/cienspay-web/apiclient"
	"github.com/cienspay/cienspay-web/apiclient/backendfake"
	"github.com/cienspay/cienspay-web/internal/errors"
	"github.com/cienspay/cienspay-web/internal/metrics"
	"github.com/cienspay/cienspay-web/session"
	"github.com/cienspay/cienspay-web/session/storefake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	backend *backendfake.Backend
	client  *apiclient.Client
	manager *session.Manager
	metrics *metrics.Metrics
}

func setupTestFixture(t *testing.T, cfg apiclient.Config, opts ...apiclient.Option) *testFixture {
	t.Helper()
	backend := backendfake.New()
	t.Cleanup(backend.Close)

	m := metrics.New(prometheus.NewRegistry())
	cfg.BaseURL = backend.BaseURL()
	client, err := apiclient.New(cfg, append([]apiclient.Option{apiclient.WithMetrics(m)}, opts...)...)
	require.NoError(t, err)

	return &testFixture{
		backend: backend,
		client:  client,
		manager: session.NewManager(storefake.NewFakeStore(), backendfake.AdminEmail),
		metrics: m,
	}
}

func (f *testFixture) login(t *testing.T, email, password string) {
	t.Helper()
	resp, err := f.client.Login(context.Background(), email, password)
	require.NoError(t, err)
	require.NoError(t, f.manager.Save(session.Session{Access: resp.Access, Refresh: resp.Refresh, User: resp.User}))
}

// failingTransport breaks or delays requests whose path ends with path
type failingTransport struct {
	path  string
	fail  bool
	delay time.Duration
}

func (ft failingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	if strings.HasSuffix(r.URL.Path, ft.path) {
		if ft.fail {
			return nil, errors.New("connection refused")
		}
		time.Sleep(ft.delay)
	}
	return http.DefaultTransport.RoundTrip(r)
}

func TestNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		c, err := apiclient.New(apiclient.Config{})
		require.NoError(t, err)
		require.Equal(t, "http://localhost:8000/api", c.BaseURL())
	})

	t.Run("trailing slash trimmed", func(t *testing.T) {
		c, err := apiclient.New(apiclient.Config{BaseURL: "https://api.cienspay.com/api/"})
		require.NoError(t, err)
		require.Equal(t, "https://api.cienspay.com/api", c.BaseURL())
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := apiclient.New(apiclient.Config{BaseURL: "not a url"})
		require.True(t, errors.Is(err, errors.ErrInvalidConfig))

		_, err = apiclient.New(apiclient.Config{RefreshMode: "oauth"})
		require.True(t, errors.Is(err, errors.ErrInvalidConfig))
	})
}

func TestAuthedDo_Headers(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]http.Header{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen[r.Method] = r.Header.Clone()
		mu.Unlock()
		_, _ = io.WriteString(w, `{"success":true}`)
	}))
	t.Cleanup(srv.Close)

	client, err := apiclient.New(apiclient.Config{BaseURL: srv.URL})
	require.NoError(t, err)
	m := session.NewManager(storefake.NewFakeStore(), "")
	require.NoError(t, m.Save(session.Session{Access: "tok", Refresh: "ref"}))

	ctx := context.Background()
	resp, err := client.AuthedDo(ctx, m, apiclient.Request{Path: "/a/"})
	require.NoError(t, err)
	require.NoError(t, apiclient.Decode(resp, nil))

	resp, err = client.AuthedDo(ctx, m, apiclient.Request{
		Method: http.MethodPost,
		Path:   "/b/",
		Header: http.Header{"X-Trace": {"abc"}},
		Body:   []byte(`{}`),
	})
	require.NoError(t, err)
	require.NoError(t, apiclient.Decode(resp, nil))

	resp, err = client.AuthedDo(ctx, m, apiclient.Request{
		Method: http.MethodPut,
		Path:   "/c/",
		Header: http.Header{"Content-Type": {"text/plain"}},
		Body:   []byte(`x`),
	})
	require.NoError(t, err)
	require.NoError(t, apiclient.Decode(resp, nil))

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, "Bearer tok", seen[http.MethodGet].Get("Authorization"))
	require.Empty(t, seen[http.MethodGet].Get("Content-Type"))
	require.Equal(t, "application/json", seen[http.MethodPost].Get("Content-Type"))
	require.Equal(t, "abc", seen[http.MethodPost].Get("X-Trace"))
	require.Equal(t, "text/plain", seen[http.MethodPut].Get("Content-Type"))
}

func TestAuthedDo_NoTokenSendsNoAuthorization(t *testing.T) {
	got := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got <- r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	client, err := apiclient.New(apiclient.Config{BaseURL: srv.URL})
	require.NoError(t, err)
	resp, err := client.AuthedDo(context.Background(), session.NewManager(storefake.NewFakeStore(), ""), apiclient.Request{Path: "/x/"})
	require.NoError(t, err)
	resp.Body.Close()
	require.Empty(t, <-got)
}

func TestAuthedDo_ValidToken(t *testing.T) {
	f := setupTestFixture(t, apiclient.Config{})
	f.login(t, backendfake.UserEmail, backendfake.UserPassword)

	user, err := f.client.Profile(context.Background(), f.manager)
	require.NoError(t, err)
	require.Equal(t, backendfake.UserEmail, user.Email)
	require.Equal(t, 0, f.backend.Calls(apiclient.PathRefreshCustom))
	require.Equal(t, 1, f.backend.Calls(apiclient.PathProfile))
}

func TestAuthedDo_RefreshAndRetry(t *testing.T) {
	for _, mode := range []apiclient.RefreshMode{apiclient.RefreshModeCustom, apiclient.RefreshModeSimpleJWT} {
		t.Run(string(mode), func(t *testing.T) {
			f := setupTestFixture(t, apiclient.Config{RefreshMode: mode})
			f.login(t, backendfake.UserEmail, backendfake.UserPassword)
			before := f.manager.Snapshot()

			f.backend.ExpireAccessTokens()
			user, err := f.client.Profile(context.Background(), f.manager)
			require.NoError(t, err)
			require.Equal(t, backendfake.UserEmail, user.Email)

			refreshPath := apiclient.PathRefreshCustom
			if mode == apiclient.RefreshModeSimpleJWT {
				refreshPath = apiclient.PathRefreshSimpleJWT
			}
			require.Equal(t, 1, f.backend.Calls(refreshPath))
			require.Equal(t, 2, f.backend.Calls(apiclient.PathProfile))

			after := f.manager.Snapshot()
			require.NotEqual(t, before.Access, after.Access)
			require.Equal(t, before.Refresh, after.Refresh)
			require.Equal(t, before.User, after.User)

			require.Equal(t, float64(1), testutil.ToFloat64(f.metrics.RetriesTotal))
			require.Equal(t, float64(1), testutil.ToFloat64(f.metrics.RefreshTotal.WithLabelValues(metrics.RefreshSuccess)))
		})
	}
}

func TestAuthedDo_RefreshRejected(t *testing.T) {
	f := setupTestFixture(t, apiclient.Config{})
	f.login(t, backendfake.UserEmail, backendfake.UserPassword)
	access := f.manager.Access()

	f.backend.ExpireAccessTokens()
	f.backend.SetFailRefresh(true)

	resp, err := f.client.AuthedDo(context.Background(), f.manager, apiclient.Request{Path: apiclient.PathProfile})
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	require.Contains(t, string(body), "token_not_valid")

	require.Equal(t, access, f.manager.Access())
	require.True(t, f.manager.IsLoggedIn())
	require.Equal(t, 1, f.backend.Calls(apiclient.PathRefreshCustom))
	require.Equal(t, 1, f.backend.Calls(apiclient.PathProfile))
	require.Equal(t, float64(0), testutil.ToFloat64(f.metrics.RetriesTotal))
}

func TestAuthedDo_RefreshNetworkFailure(t *testing.T) {
	f := setupTestFixture(t, apiclient.Config{},
		apiclient.WithHTTPClient(&http.Client{Transport: failingTransport{path: apiclient.PathRefreshCustom, fail: true}}))
	f.login(t, backendfake.UserEmail, backendfake.UserPassword)
	access := f.manager.Access()
	f.backend.ExpireAccessTokens()

	_, err := f.client.Profile(context.Background(), f.manager)
	var apiErr *apiclient.Error
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)
	require.True(t, errors.Is(err, errors.ErrUnauthorized))

	require.Equal(t, access, f.manager.Access())
	require.Equal(t, 0, f.backend.Calls(apiclient.PathRefreshCustom))
	require.Equal(t, float64(1), testutil.ToFloat64(f.metrics.RefreshTotal.WithLabelValues(metrics.RefreshFailure)))
}

func TestAuthedDo_NoRefreshToken(t *testing.T) {
	f := setupTestFixture(t, apiclient.Config{})
	f.login(t, backendfake.UserEmail, backendfake.UserPassword)
	store := storefake.NewFakeStore()
	partial := session.NewManager(store, "")
	require.NoError(t, store.Set(session.KeyAccess, "stale"))

	resp, err := f.client.AuthedDo(context.Background(), partial, apiclient.Request{Path: apiclient.PathProfile})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, 0, f.backend.Calls(apiclient.PathRefreshCustom))
}

func TestAuthedDo_OriginalNetworkError(t *testing.T) {
	client, err := apiclient.New(apiclient.Config{BaseURL: "http://cienspay.invalid/api"},
		apiclient.WithHTTPClient(&http.Client{Transport: failingTransport{path: "/", fail: true}}))
	require.NoError(t, err)

	_, err = client.AuthedDo(context.Background(), session.NewManager(storefake.NewFakeStore(), ""), apiclient.Request{Path: "/auth/profile/"})
	require.True(t, errors.Is(err, errors.ErrNetwork))
}

func TestRefresh_Idempotent(t *testing.T) {
	f := setupTestFixture(t, apiclient.Config{})
	f.login(t, backendfake.UserEmail, backendfake.UserPassword)
	refresh := f.manager.Refresh()
	ctx := context.Background()

	first, err := f.client.Refresh(ctx, refresh)
	require.NoError(t, err)
	second, err := f.client.Refresh(ctx, refresh)
	require.NoError(t, err)

	require.NotEmpty(t, first)
	require.NotEmpty(t, second)
	require.Equal(t, refresh, f.manager.Refresh())
}

func TestRefresh_Unavailable(t *testing.T) {
	f := setupTestFixture(t, apiclient.Config{})

	_, err := f.client.Refresh(context.Background(), "")
	require.True(t, errors.Is(err, errors.ErrRefreshUnavailable))
	require.Equal(t, 0, f.backend.Calls(apiclient.PathRefreshCustom))

	_, err = f.client.Refresh(context.Background(), "unknown")
	require.True(t, errors.Is(err, errors.ErrRefreshUnavailable))
	require.Equal(t, 1, f.backend.Calls(apiclient.PathRefreshCustom))
}

func TestRefresh_CustomModeAcceptsFlatAccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"access":"flat"}`)
	}))
	t.Cleanup(srv.Close)

	client, err := apiclient.New(apiclient.Config{BaseURL: srv.URL})
	require.NoError(t, err)
	access, err := client.Refresh(context.Background(), "r")
	require.NoError(t, err)
	require.Equal(t, "flat", access)
}

func TestRefresh_SingleFlight(t *testing.T) {
	f := setupTestFixture(t, apiclient.Config{},
		apiclient.WithSingleFlightRefresh(),
		apiclient.WithHTTPClient(&http.Client{Transport: failingTransport{path: apiclient.PathRefreshCustom, delay: 300 * time.Millisecond}}))
	f.login(t, backendfake.UserEmail, backendfake.UserPassword)
	f.backend.SetSingleUseRefresh(true)
	f.backend.ExpireAccessTokens()

	const workers = 6
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.client.Profile(context.Background(), f.manager)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, 1, f.backend.Calls(apiclient.PathRefreshCustom))
	require.Equal(t, float64(workers), testutil.ToFloat64(f.metrics.RefreshTotal.WithLabelValues(metrics.RefreshShared)))
}

func TestRefresh_SingleFlightSurvivesCancelledLeader(t *testing.T) {
	f := setupTestFixture(t, apiclient.Config{},
		apiclient.WithSingleFlightRefresh(),
		apiclient.WithHTTPClient(&http.Client{Transport: failingTransport{path: apiclient.PathRefreshCustom, delay: 300 * time.Millisecond}}))
	f.login(t, backendfake.UserEmail, backendfake.UserPassword)
	f.backend.SetSingleUseRefresh(true)
	f.backend.ExpireAccessTokens()

	leaderCtx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	var wg sync.WaitGroup
	var leaderErr, followerErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, leaderErr = f.client.Profile(leaderCtx, f.manager)
	}()
	go func() {
		defer wg.Done()
		time.Sleep(50 * time.Millisecond)
		_, followerErr = f.client.Profile(context.Background(), f.manager)
	}()
	wg.Wait()

	require.Error(t, leaderErr)
	require.NoError(t, followerErr)
	require.Equal(t, 1, f.backend.Calls(apiclient.PathRefreshCustom))
}

package web

import (
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"TurbineMonitor/dashboard"
	"TurbineMonitor/location"
	"TurbineMonitor/sim"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	ctrl   *dashboard.Controller
	store  *location.MemoryStore
	router http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := log.New(io.Discard)

	dev, err := sim.New("test", &sim.Opts{Rand: rand.New(rand.NewSource(11))})
	require.NoError(t, err)

	store := location.NewMemoryStore()
	ctrl := dashboard.New(dev, store, dashboard.Options{
		Interval: 10 * time.Millisecond,
		Fallback: location.Default,
		Logger:   logger,
	})
	t.Cleanup(func() { _ = ctrl.Close() })

	srv, err := New(ctrl, store, logger, Options{TurbineName: "WT-01", Fallback: location.Default})
	require.NoError(t, err)

	return &fixture{ctrl: ctrl, store: store, router: srv.Router()}
}

func (f *fixture) do(t *testing.T, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) postLocation(t *testing.T, lat, lng string) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{"lat": {lat}, "lng": {lng}}
	return f.do(t, http.MethodPost, "/location", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
}

func TestNavigation(t *testing.T) {
	active := func(items []NavItem) map[string]bool {
		m := map[string]bool{}
		for _, it := range items {
			m[it.Label] = it.Active
		}
		return m
	}

	require.Equal(t, map[string]bool{"Home": false, "Dashboard": true}, active(Navigation("/dashboard")))
	require.Equal(t, map[string]bool{"Home": true, "Dashboard": false}, active(Navigation("/")))
	require.Equal(t, map[string]bool{"Home": false, "Dashboard": false}, active(Navigation("/dashboard/")))
}

func TestLandingPage(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	require.Contains(t, body, "Select Turbine Location")
	require.Contains(t, body, "Smart Sensors")
	require.Contains(t, body, `value="13.1067"`)
	require.Contains(t, body, `value="80.0695"`)
	require.Contains(t, body, `href="/" class="active"`)
	require.NotContains(t, body, `href="/dashboard" class="active"`)
}

func TestSetLocationLastConfirmationWins(t *testing.T) {
	f := newFixture(t)

	for _, ll := range [][2]string{{"13.0", "80.0"}, {"13.5", "80.5"}} {
		rec := f.postLocation(t, ll[0], ll[1])
		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/dashboard", rec.Header().Get("Location"))
	}

	loc, err := f.store.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, location.Location{Lat: 13.5, Lng: 80.5}, loc)
}

func TestSetLocationParsesExactly(t *testing.T) {
	f := newFixture(t)

	rec := f.postLocation(t, "14.25", "80.0695")
	require.Equal(t, http.StatusSeeOther, rec.Code)

	loc, err := f.store.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, 14.25, loc.Lat)
}

func TestSetLocationRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)

	rec := f.postLocation(t, "abc", "80")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), `role="alert"`)
	require.Contains(t, rec.Body.String(), `value="abc"`)

	rec = f.postLocation(t, "13", "181")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	_, err := f.store.Get(context.Background())
	require.ErrorIs(t, err, location.ErrNotSet)
}

func TestDashboardPage(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Set(context.Background(), location.Location{Lat: 13.5, Lng: 80.5}))

	rec := f.do(t, http.MethodGet, "/dashboard", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	require.Contains(t, body, "Vibration Status")
	require.Contains(t, body, "Performance Trends")
	require.Contains(t, body, "13.5000, 80.5000")
	require.Contains(t, body, `href="/dashboard" class="active"`)
	require.NotContains(t, body, `href="/" class="active"`)

	// Rendering the page alone does not start the feed.
	require.False(t, f.ctrl.Active())
}

func TestLocationAPI(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/location", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"lat":13.1067,"lng":80.0695}`, rec.Body.String())

	rec = f.do(t, http.MethodPut, "/api/location", strings.NewReader(`{"lat":13.5,"lng":80.5}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/location", nil, "")
	require.JSONEq(t, `{"lat":13.5,"lng":80.5}`, rec.Body.String())

	rec = f.do(t, http.MethodPut, "/api/location", strings.NewReader(`{"lat":95,"lng":80.5}`), "application/json")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var e errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	require.Equal(t, location.FieldLat, e.Field)

	rec = f.do(t, http.MethodPut, "/api/location", strings.NewReader(`{"lat":10}`), "application/json")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPut, "/api/location", strings.NewReader(`nope`), "application/json")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSnapshotAPI(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/snapshot", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var st struct {
		Active     bool              `json:"active"`
		Location   location.Location `json:"location"`
		Categories []sim.Category    `json:"categories"`
		Trend      []json.RawMessage `json:"trend"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	require.False(t, st.Active)
	require.Equal(t, location.Default, st.Location)
	require.Len(t, st.Categories, 4)
	require.Empty(t, st.Trend)
}

func TestStreamRunsFeedWhileConnected(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.router)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	var st dashboard.State
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&struct{}{}))

	var tick struct {
		Active bool `json:"active"`
		Trend  []struct {
			Label string `json:"label"`
		} `json:"trend"`
	}
	require.NoError(t, conn.ReadJSON(&tick))
	require.True(t, tick.Active)
	require.NotEmpty(t, tick.Trend)
	require.True(t, f.ctrl.Active())

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return !f.ctrl.Active() }, 2*time.Second, 10*time.Millisecond)

	st = f.ctrl.State()
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, st, f.ctrl.State())
}

package sunrise

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p := NewProvider(slog.Default(), 59.33, 18.07)
	p.baseURL = srv.URL
	p.location = time.UTC
	return p
}

func TestSunriseSeconds(t *testing.T) {
	p := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/json", r.URL.Path)
		assert.Equal(t, "59.33", r.URL.Query().Get("lat"))
		assert.Equal(t, "18.07", r.URL.Query().Get("lng"))
		assert.Equal(t, "0", r.URL.Query().Get("formatted"))
		w.Write([]byte(`{"status":"OK","results":{"sunrise":"2026-03-15T05:47:30+00:00"}}`))
	})

	secs, err := p.SunriseSeconds(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5*3600+47*60+30, secs)
}

func TestSunriseSecondsConvertsZone(t *testing.T) {
	p := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"OK","results":{"sunrise":"2026-03-15T05:47:30+00:00"}}`))
	})
	p.location = time.FixedZone("CET", 3600)

	secs, err := p.SunriseSeconds(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6*3600+47*60+30, secs)
}

func TestSunriseSecondsHTTPError(t *testing.T) {
	p := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := p.SunriseSeconds(context.Background())
	assert.Error(t, err)
}

func TestSunriseSecondsAPIStatusError(t *testing.T) {
	p := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"INVALID_REQUEST","results":{}}`))
	})

	_, err := p.SunriseSeconds(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_REQUEST")
}

func TestSunriseSecondsBadPayload(t *testing.T) {
	p := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})
	_, err := p.SunriseSeconds(context.Background())
	assert.Error(t, err)

	p = testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"OK","results":{"sunrise":"five in the morning"}}`))
	})
	_, err = p.SunriseSeconds(context.Background())
	assert.Error(t, err)
}

func TestSunriseSecondsContextCancelled(t *testing.T) {
	p := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := p.SunriseSeconds(ctx)
	assert.Error(t, err)
}

package panel

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

func TestProbes(t *testing.T) {
	ok := pingerFunc(func(context.Context) error { return nil })
	down := pingerFunc(func(context.Context) error { return errors.New("connection refused") })
	slow := pingerFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	testCases := []struct {
		name         string
		path         string
		deps         map[string]Pinger
		expectedCode int
	}{
		{name: "live", path: "/healthz", deps: map[string]Pinger{"productapi": down}, expectedCode: http.StatusOK},
		{name: "ready", path: "/readyz", deps: map[string]Pinger{"productapi": ok}, expectedCode: http.StatusOK},
		{name: "dependency down", path: "/readyz", deps: map[string]Pinger{"productapi": down}, expectedCode: http.StatusServiceUnavailable},
		{name: "dependency too slow", path: "/readyz", deps: map[string]Pinger{"productapi": slow}, expectedCode: http.StatusServiceUnavailable},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			r := chi.NewRouter()
			NewProbes(tc.deps, 50*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil))).MountRoutes(r)
			rr := httptest.NewRecorder()

			// when
			r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tc.path, nil))

			// then
			assert.Equal(t, tc.expectedCode, rr.Code)
		})
	}
}

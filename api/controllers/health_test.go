package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angelmondragon/stripe-payments/pkg/config"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}

	cases := map[string]struct {
		db, redis pinger
		want      int
	}{
		"all up":     {db: stubPinger{}, redis: stubPinger{}, want: http.StatusOK},
		"redis down": {db: stubPinger{}, redis: stubPinger{err: errors.New("refused")}, want: http.StatusServiceUnavailable},
		"no db":      {redis: stubPinger{}, want: http.StatusServiceUnavailable},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HealthReady(cfg, nil, tc.db, tc.redis)(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
			if rec.Code != tc.want {
				t.Fatalf("expected %d got %d (%s)", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}

package rate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestHTTPProviderFetches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rate": "0.20"}`))
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, nil, time.Minute, decimal.RequireFromString("0.15"))
	got := p.CurrentRate(context.Background())
	assert.True(t, got.Equal(decimal.RequireFromString("0.20")))
}

func TestHTTPProviderFallsBackToDefault(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "negative rate",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"rate": "-0.05"}`))
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`not json`))
			},
		},
	}

	fallback := decimal.RequireFromString("0.15")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			p := NewHTTPProvider(srv.URL, nil, time.Minute, fallback)
			got := p.CurrentRate(context.Background())
			assert.True(t, got.Equal(fallback))
		})
	}
}

func TestHTTPProviderNoEndpointConfigured(t *testing.T) {
	fallback := decimal.RequireFromString("0.15")
	p := NewHTTPProvider("", nil, time.Minute, fallback)
	got := p.CurrentRate(context.Background())
	assert.True(t, got.Equal(fallback))
}

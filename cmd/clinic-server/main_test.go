package main

import (
	"testing"
	"time"

	"github.com/clinicore/clinicore/internal/config"
)

func TestResolveRequestTimeout(t *testing.T) {
	tests := []struct {
		seconds int
		want    time.Duration
	}{
		{30, 30 * time.Second},
		{5, 5 * time.Second},
		{0, 30 * time.Second},
		{-1, 30 * time.Second},
	}
	for _, tt := range tests {
		if got := resolveRequestTimeout(tt.seconds); got != tt.want {
			t.Errorf("resolveRequestTimeout(%d) = %v, want %v", tt.seconds, got, tt.want)
		}
	}
}

func TestAuthMiddleware_KnownModes(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
	}{
		{"development", config.Config{Env: "development"}},
		{"token", config.Config{Env: "production", JWTSecret: "s3cret"}},
		{"external", config.Config{Env: "production", AuthIssuer: "https://auth.example.com", AuthJWKSURL: "https://auth.example.com/jwks"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw, err := authMiddleware(&tt.cfg)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if mw == nil {
				t.Fatal("expected middleware, got nil")
			}
		})
	}
}

func TestAuthMiddleware_UnknownMode(t *testing.T) {
	cfg := &config.Config{AuthMode: "basic"}
	if _, err := authMiddleware(cfg); err == nil {
		t.Fatal("expected error for unknown auth mode")
	}
}

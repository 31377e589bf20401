package app

import (
	"context"
	"testing"
	"time"

	"creditflow/internal/adapters/persistence/repositories"
	"creditflow/internal/adapters/scoring"
	"creditflow/internal/config"
	"creditflow/internal/pkg/logger"
)

func TestNewStoreOnlyMemory(t *testing.T) {
	c, err := NewStoreOnly(context.Background(), &config.Config{StorageDriver: "memory"}, logger.Discard())
	if err != nil {
		t.Fatalf("NewStoreOnly() error = %v", err)
	}
	defer c.Close()

	if _, ok := c.Store.(*repositories.MemoryCreditRequestRepository); !ok {
		t.Errorf("Store = %T, want memory repository", c.Store)
	}
	if err := c.Store.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestBuildOracle(t *testing.T) {
	tests := []struct {
		name    string
		scoring config.ScoringConfig
		check   func(t *testing.T, o interface{})
	}{
		{
			name:    "mock",
			scoring: config.ScoringConfig{Provider: "mock"},
			check: func(t *testing.T, o interface{}) {
				if _, ok := o.(*scoring.MockOracle); !ok {
					t.Errorf("oracle = %T, want *scoring.MockOracle", o)
				}
			},
		},
		{
			name:    "http",
			scoring: config.ScoringConfig{Provider: "http", URL: "http://bureau.local/score", Timeout: time.Second},
			check: func(t *testing.T, o interface{}) {
				if _, ok := o.(*scoring.HTTPOracle); !ok {
					t.Errorf("oracle = %T, want *scoring.HTTPOracle", o)
				}
			},
		},
		{
			name:    "rate limited",
			scoring: config.ScoringConfig{Provider: "mock", RateLimit: 5, Burst: 2},
			check: func(t *testing.T, o interface{}) {
				if _, ok := o.(*scoring.RateLimitedOracle); !ok {
					t.Errorf("oracle = %T, want *scoring.RateLimitedOracle", o)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Container{Config: &config.Config{Scoring: tt.scoring}, Log: logger.Discard()}
			o, err := c.buildOracle(context.Background())
			if err != nil {
				t.Fatalf("buildOracle() error = %v", err)
			}
			tt.check(t, o)
		})
	}
}

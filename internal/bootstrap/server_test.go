package bootstrap

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Domenick1991/roomhold/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestDialTarget(t *testing.T) {
	tests := map[string]string{
		":9090":          "127.0.0.1:9090",
		"0.0.0.0:9090":   "127.0.0.1:9090",
		"[::]:9090":      "127.0.0.1:9090",
		"10.0.0.5:9090":  "10.0.0.5:9090",
		"localhost:9090": "localhost:9090",
		"not-an-address": "not-an-address",
	}
	for in, want := range tests {
		assert.Equal(t, want, dialTarget(in), in)
	}
}

type pinger struct {
	err error
}

func (p pinger) Ping(ctx context.Context) error {
	return p.err
}

func TestWatchHealth(t *testing.T) {
	for _, tt := range []struct {
		name  string
		store Pinger
		want  healthpb.HealthCheckResponse_ServingStatus
	}{
		{"no store", nil, healthpb.HealthCheckResponse_SERVING},
		{"reachable", pinger{}, healthpb.HealthCheckResponse_SERVING},
		{"unreachable", pinger{err: errors.New("down")}, healthpb.HealthCheckResponse_NOT_SERVING},
	} {
		t.Run(tt.name, func(t *testing.T) {
			hs := health.NewServer()
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			go func() {
				watchHealth(ctx, hs, tt.store, zap.NewNop())
				close(done)
			}()

			assert.Eventually(t, func() bool {
				resp, err := hs.Check(context.Background(), &healthpb.HealthCheckRequest{})
				return err == nil && resp.Status == tt.want
			}, time.Second, 10*time.Millisecond)
			cancel()
			<-done
		})
	}
}

func TestRun_StopsWithContext(t *testing.T) {
	cfg := config.Default()
	cfg.HTTP.Address = "127.0.0.1:0"
	cfg.GRPC.Address = "127.0.0.1:0"
	cfg.HTTP.ShutdownTimeout = time.Second

	var started atomic.Bool
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, cfg, Deps{
			Store: pinger{},
			Background: []func(context.Context) error{
				func(ctx context.Context) error {
					started.Store(true)
					<-ctx.Done()
					return nil
				},
			},
		})
	}()

	assert.Eventually(t, started.Load, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("servers did not stop")
	}
}

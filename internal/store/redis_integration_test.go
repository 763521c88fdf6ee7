//go:build integration

package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"staffattend/internal/gallery"
	"staffattend/internal/httpmiddleware"
	"staffattend/internal/queue"
	"staffattend/internal/store"
)

func setupRedis(t *testing.T) *store.Redis {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor: wait.ForLog("Ready to accept connections").
			WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil || container == nil {
		t.Skipf("Docker not available, skipping integration test: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	r := store.NewRedis(fmt.Sprintf("%s:%s", host, port.Port()))
	require.NotNil(t, r)
	t.Cleanup(func() { _ = r.Close() })
	require.True(t, r.Healthy(ctx))
	return r
}

func TestRedisBackends(t *testing.T) {
	r := setupRedis(t)
	ctx := context.Background()

	t.Run("gallery version", func(t *testing.T) {
		v := gallery.NewRedisVersion(r.Client, "test:gallery:version")

		n, err := v.Current(ctx)
		require.NoError(t, err)
		assert.Zero(t, n, "missing key reads as version 0")

		for want := int64(1); want <= 3; want++ {
			got, err := v.Bump(ctx)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
		n, err = v.Current(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})

	t.Run("enroll queue", func(t *testing.T) {
		q := queue.NewRedisQueue(r.Client, "test:jobs")
		jobs := queue.Jobs{Queue: q}
		require.NoError(t, jobs.EnqueueEnroll(ctx, "EMP001"))
		require.NoError(t, jobs.EnqueueEnroll(ctx, "EMP002"))
		// Entries that are not JSON are skipped by the consumer.
		require.NoError(t, r.Client.LPush(ctx, "test:jobs", "not json").Err())
		require.NoError(t, jobs.EnqueueEnroll(ctx, "EMP003"))

		cctx, cancel := context.WithTimeout(ctx, 20*time.Second)
		defer cancel()
		msgs, err := q.Consume(cctx)
		require.NoError(t, err)

		var codes []string
		for len(codes) < 3 {
			select {
			case msg, ok := <-msgs:
				require.True(t, ok, "consumer stopped early")
				job, err := queue.DecodeEnroll(msg)
				require.NoError(t, err)
				codes = append(codes, job.EmployeeCode)
			case <-cctx.Done():
				t.Fatalf("timed out after %v", codes)
			}
		}
		assert.Equal(t, []string{"EMP001", "EMP002", "EMP003"}, codes, "FIFO order")

		cancel()
		for range msgs {
		}
	})

	t.Run("sliding window rate limit", func(t *testing.T) {
		l := httpmiddleware.NewRedisSlidingWindow(r.Client, 3)
		assert.Equal(t, 3, l.Limit())

		for i := 0; i < 3; i++ {
			ok, err := l.Allow(ctx, "10.0.0.1")
			require.NoError(t, err)
			assert.True(t, ok, "request %d", i+1)
		}
		ok, err := l.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.False(t, ok, "fourth request within the minute is denied")

		ok, err = l.Allow(ctx, "10.0.0.2")
		require.NoError(t, err)
		assert.True(t, ok, "keys are limited independently")

		ttl, err := r.Client.TTL(ctx, "staffattend:ratelimit:10.0.0.1").Result()
		require.NoError(t, err)
		assert.True(t, ttl > 0, "key expires, got ttl %v", ttl)
	})
}

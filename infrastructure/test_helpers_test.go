package infrastructure

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// setupRedis starts a redis container and returns a connected client
func setupRedis(t *testing.T) redis.UniversalClient {
	if testing.Short() {
		t.Skip("skipping redis test in short mode")
	}
	ctx := context.Background()

	container, err := tcredis.Run(ctx,
		"redis:7-alpine",
		testcontainers.CustomizeRequest(testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{Labels: map[string]string{
				"test":      "tierledger-infrastructure",
				"test-name": t.Name(),
				"timestamp": time.Now().Format("20060102-150405"),
				"cleanup":   "auto",
			}},
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate redis container: %v", err)
		}
	})

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	rdb, err := ConnectRedis(ctx, uri)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	return rdb
}

type recordedOutcome struct {
	name    string
	outcome string
	success bool
}

// fakeRecorder captures metric calls
type fakeRecorder struct {
	calls []recordedOutcome
}

func (f *fakeRecorder) RecordBroadcast(ctx context.Context, outcome string) {
	f.calls = append(f.calls, recordedOutcome{name: "broadcast", outcome: outcome})
}

func (f *fakeRecorder) RecordNATSPublish(ctx context.Context, subject string, success bool) {
	f.calls = append(f.calls, recordedOutcome{name: subject, success: success})
}

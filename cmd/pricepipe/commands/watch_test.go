package commands

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/pricepipe/internal/history"
	"github.com/dyluth/pricepipe/internal/runstore"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatchRuns(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := runstore.NewRedisStore(&redis.Options{Addr: mr.Addr()}, "test")
	require.NoError(t, err)
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- watchRuns(ctx, store, &runstore.Filter{Pipeline: "house-price"}, history.OutputFormatDefault, out)
	}()

	other := runstore.NewRunRecord("other", "airline", "")
	record := runstore.NewRunRecord("house-price", "housing", "")
	record.Stage = runstore.StageTrain

	// Publish until the subscriber has connected and printed the update
	assert.Eventually(t, func() bool {
		if store.UpsertRun(context.Background(), other) != nil {
			return false
		}
		if store.UpsertRun(context.Background(), record) != nil {
			return false
		}
		return strings.Contains(out.String(), record.ID[:8])
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}

	assert.Contains(t, out.String(), "train")
	assert.NotContains(t, out.String(), other.ID[:8])
}

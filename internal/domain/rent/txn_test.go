package rent

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTxn_RollbackNewestFirst(t *testing.T) {
	tx := &txn{logger: slog.New(slog.DiscardHandler)}
	var order []string
	tx.onRollback("first", func(context.Context) error {
		order = append(order, "first")
		return nil
	})
	tx.onRollback("second", func(context.Context) error {
		order = append(order, "second")
		return errors.New("boom")
	})
	tx.onRollback("third", func(context.Context) error {
		order = append(order, "third")
		return nil
	})

	tx.rollback(context.Background())
	require.Equal(t, []string{"third", "second", "first"}, order)

	// Steps run once
	tx.rollback(context.Background())
	require.Len(t, order, 3)
}

func TestTxn_RollbackIgnoresCancellation(t *testing.T) {
	tx := &txn{logger: slog.New(slog.DiscardHandler)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ctxErr error
	tx.onRollback("undo", func(ctx context.Context) error {
		ctxErr = ctx.Err()
		return nil
	})
	tx.rollback(ctx)
	require.NoError(t, ctxErr)
}

func TestTxn_CommitDropsSteps(t *testing.T) {
	tx := &txn{logger: slog.New(slog.DiscardHandler)}
	ran := false
	tx.onRollback("undo", func(context.Context) error {
		ran = true
		return nil
	})
	tx.commit()
	tx.rollback(context.Background())
	require.False(t, ran)
}

func TestKeyLocks(t *testing.T) {
	locks := newKeyLocks()
	key := Key{AssetRef: "land", AssetID: 1}

	unlock := locks.lock(key)

	// A different key is independent
	other := locks.lock(Key{AssetRef: "land", AssetID: 2})
	other()

	acquired := make(chan struct{})
	go func() {
		release := locks.lock(key)
		close(acquired)
		release()
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired a held key")
	case <-time.After(20 * time.Millisecond):
	}

	unlock()
	<-acquired

	require.Eventually(t, func() bool {
		locks.mu.Lock()
		defer locks.mu.Unlock()
		return len(locks.locks) == 0
	}, time.Second, time.Millisecond)
}

func TestKeyLocks_Concurrent(t *testing.T) {
	locks := newKeyLocks()
	key := Key{AssetRef: "land", AssetID: 1}

	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.lock(key)
			defer unlock()
			counter++
		}()
	}
	wg.Wait()
	require.Equal(t, 50, counter)
}

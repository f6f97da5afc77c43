package leveling

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"gooutside/internal/common"
)

// Buffer batches user row updates so that a burst of tracked actions does
// not turn into one UPDATE per event. Mutations are applied to the cached
// record immediately, so reads through the store always see the latest
// values; only the persistent write is deferred.
type Buffer struct {
	db           *gorm.DB
	writeTimeout time.Duration

	mu      sync.Mutex
	pending map[string]*User
	// columns touched since the last successful flush, tracked across
	// all pending records rather than per record
	columns   map[string]struct{}
	stopwatch common.Stopwatch

	// flushMu guards the whole flush critical section: snapshot, bulk
	// write, and pending-set clear. At most one flush runs at a time.
	flushMu sync.Mutex
}

// NewBuffer returns a write buffer that becomes due for a flush whenever
// interval has elapsed since the previous one. Each bulk write is bounded
// by writeTimeout.
func NewBuffer(db *gorm.DB, interval time.Duration, writeTimeout time.Duration) *Buffer {
	return &Buffer{
		db:           db,
		writeTimeout: writeTimeout,
		pending:      make(map[string]*User),
		columns:      make(map[string]struct{}),
		stopwatch:    common.NewStopwatch(interval),
	}
}

// Update applies mutate to the record, remembers the touched columns for
// the next flush, and adds the record to the pending set if it is not
// there already (deduplicated by user id). Concurrent updates to the same
// record resolve as last writer wins.
func (b *Buffer) Update(rec *User, mutate func(*User), columns ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	mutate(rec)
	b.pending[rec.UserID] = rec
	for _, col := range columns {
		b.columns[col] = struct{}{}
	}
}

// Forget drops any pending update for the user. Used when the row itself
// is being deleted, so a later flush does not chase a ghost.
func (b *Buffer) Forget(userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pending, userID)
	if len(b.pending) == 0 {
		clear(b.columns)
	}
}

// MaybeFlush flushes if the flush interval has elapsed and no other flush
// is running. The "already running" check is a try-lock, so event
// handling is never queued behind a flush in progress.
func (b *Buffer) MaybeFlush(ctx context.Context) {
	b.mu.Lock()
	due, _ := b.stopwatch.Stopped()
	due = due && len(b.pending) > 0
	b.mu.Unlock()
	if !due {
		return
	}

	if !b.flushMu.TryLock() {
		log.Debug().Msg("Batch update already in progress, skipping")
		return
	}
	defer b.flushMu.Unlock()
	if err := b.flush(ctx); err != nil {
		log.Error().Err(err).Msg("Batch update failed, keeping records dirty")
	}
}

// Flush forces a flush, waiting for any running one to finish first.
func (b *Buffer) Flush(ctx context.Context) error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()
	return b.flush(ctx)
}

// flush writes every pending record's touched columns in one transaction.
// Callers must hold flushMu. On failure nothing is cleared, so the same
// records are retried on the next trigger.
func (b *Buffer) flush(ctx context.Context) error {
	b.mu.Lock()
	if len(b.pending) == 0 {
		b.stopwatch.Start()
		b.mu.Unlock()
		return nil
	}
	records := make([]User, 0, len(b.pending))
	for _, rec := range b.pending {
		records = append(records, *rec)
	}
	columns := make([]string, 0, len(b.columns))
	for col := range b.columns {
		columns = append(columns, col)
	}
	b.mu.Unlock()

	log.Info().Int("users", len(records)).Strs("columns", columns).Msg("Executing batch update")

	ctx, cancel := context.WithTimeout(ctx, b.writeTimeout)
	defer cancel()
	err := b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range records {
			update := tx.Model(&User{}).Where("user_id = ?", records[i].UserID).Select(columns).Updates(records[i])
			if update.Error != nil {
				return update.Error
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("batch updating %d users: %w", len(records), err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range records {
		// Records dirtied again while the transaction ran stay pending
		if cur, ok := b.pending[records[i].UserID]; ok && *cur == records[i] {
			delete(b.pending, records[i].UserID)
		}
	}
	if len(b.pending) == 0 {
		clear(b.columns)
	}
	b.stopwatch.Start()
	return nil
}

package leveling

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBufferReadYourWrites(t *testing.T) {
	db := setupTestDB(t)
	buffer := NewBuffer(db, time.Hour, time.Second)
	store := NewStore(db, buffer)
	ctx := context.Background()

	_, err := store.Create(ctx, "42")
	require.NoError(t, err)
	rec, err := store.Get(ctx, "42")
	require.NoError(t, err)

	buffer.Update(rec, func(u *User) { u.Points = 5 }, ColPoints)

	// The cache observes the new value immediately
	cached, err := store.Lookup(ctx, "42")
	require.NoError(t, err)
	require.EqualValues(t, 5, cached.Points)

	// The persistent row still has the old one
	var row User
	require.NoError(t, db.First(&row, "user_id = ?", "42").Error)
	require.EqualValues(t, 0, row.Points)
}

func TestBufferFlushPersists(t *testing.T) {
	db := setupTestDB(t)
	buffer := NewBuffer(db, time.Hour, time.Second)
	store := NewStore(db, buffer)
	ctx := context.Background()

	_, err := store.Create(ctx, "42")
	require.NoError(t, err)
	rec, err := store.Get(ctx, "42")
	require.NoError(t, err)

	buffer.Update(rec, func(u *User) {
		u.Points = 9
		u.LastActionType = ActionTyping
		u.LastActionTimestamp = 123
	}, ColPoints, ColLastActionType, ColLastActionTimestamp)

	require.NoError(t, buffer.Flush(ctx))

	var row User
	require.NoError(t, db.First(&row, "user_id = ?", "42").Error)
	require.EqualValues(t, 9, row.Points)
	require.Equal(t, ActionTyping, row.LastActionType)
	require.EqualValues(t, 123, row.LastActionTimestamp)

	buffer.mu.Lock()
	defer buffer.mu.Unlock()
	require.Empty(t, buffer.pending)
	require.Empty(t, buffer.columns)
}

func TestBufferMaybeFlushHonoursInterval(t *testing.T) {
	db := setupTestDB(t)
	buffer := NewBuffer(db, time.Hour, time.Second)
	ctx := context.Background()

	rec := &User{UserID: "42", LastActionType: ActionMessageCreate}
	require.NoError(t, db.Create(rec).Error)

	// An empty flush starts the interval clock
	require.NoError(t, buffer.Flush(ctx))

	buffer.Update(rec, func(u *User) { u.Points = 7 }, ColPoints)
	buffer.MaybeFlush(ctx)

	var row User
	require.NoError(t, db.First(&row, "user_id = ?", "42").Error)
	require.EqualValues(t, 0, row.Points, "flush must not run before the interval elapses")
}

func TestBufferMaybeFlushWhenDue(t *testing.T) {
	db := setupTestDB(t)
	buffer := NewBuffer(db, 0, time.Second)
	ctx := context.Background()

	rec := &User{UserID: "42", LastActionType: ActionMessageCreate}
	require.NoError(t, db.Create(rec).Error)

	buffer.Update(rec, func(u *User) { u.Points = 7 }, ColPoints)
	buffer.MaybeFlush(ctx)

	var row User
	require.NoError(t, db.First(&row, "user_id = ?", "42").Error)
	require.EqualValues(t, 7, row.Points)
}

func TestBufferFlushFailureKeepsPending(t *testing.T) {
	db := setupTestDB(t)
	buffer := NewBuffer(db, time.Hour, time.Second)
	ctx := context.Background()

	rec := &User{UserID: "42", LastActionType: ActionMessageCreate}
	require.NoError(t, db.Create(rec).Error)

	buffer.Update(rec, func(u *User) { u.Points = 11 }, ColPoints)

	// Make the bulk write fail
	require.NoError(t, db.Migrator().DropTable(&User{}))
	require.Error(t, buffer.Flush(ctx))

	buffer.mu.Lock()
	require.Len(t, buffer.pending, 1)
	require.Contains(t, buffer.columns, ColPoints)
	buffer.mu.Unlock()

	// Once the database recovers, the same records flush through
	require.NoError(t, db.AutoMigrate(&User{}))
	require.NoError(t, db.Create(&User{UserID: "42", LastActionType: ActionMessageCreate}).Error)
	require.NoError(t, buffer.Flush(ctx))

	var row User
	require.NoError(t, db.First(&row, "user_id = ?", "42").Error)
	require.EqualValues(t, 11, row.Points)

	buffer.mu.Lock()
	defer buffer.mu.Unlock()
	require.Empty(t, buffer.pending)
}

func TestBufferForget(t *testing.T) {
	db := setupTestDB(t)
	buffer := NewBuffer(db, time.Hour, time.Second)

	rec := &User{UserID: "42", LastActionType: ActionMessageCreate}
	buffer.Update(rec, func(u *User) { u.Points = 3 }, ColPoints)
	buffer.Forget("42")

	buffer.mu.Lock()
	defer buffer.mu.Unlock()
	require.Empty(t, buffer.pending)
	require.Empty(t, buffer.columns)
}

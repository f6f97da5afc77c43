package leveling

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
)

var (
	// ErrAlreadyRegistered is returned by Create when the user already
	// has a record.
	ErrAlreadyRegistered = errors.New("user already registered")
	// ErrNotRegistered is returned when an operation needs a record and
	// the user has none.
	ErrNotRegistered = errors.New("user not registered")
)

// Store owns the users table and its in-memory cache. The cache is
// authoritative for reads during normal operation; the persistent rows
// may lag behind until the write buffer flushes.
type Store struct {
	db     *gorm.DB
	buffer *Buffer

	mu sync.Mutex
	// cache distinguishes three states per user id: a missing key means
	// the id has never been looked up, a nil entry means the database
	// confirmed there is no row, and a non-nil entry is the live record.
	cache map[string]*User
	// locks holds one mutex per user id ever seen, including ids that
	// were only probed and never registered. Entries are kept for the
	// life of the process: dropping one while a goroutine still holds or
	// waits on it would allow a second mutex for the same user.
	locks map[string]*sync.Mutex

	now func() time.Time
}

// NewStore wires the store to its write buffer so Delete can drop a
// user's pending entry along with the row. buffer may be nil when no
// buffering is in play.
func NewStore(db *gorm.DB, buffer *Buffer) *Store {
	return &Store{
		db:     db,
		buffer: buffer,
		cache:  make(map[string]*User),
		locks:  make(map[string]*sync.Mutex),
		now:    time.Now,
	}
}

// LockUser serializes all mutations for one user id. Registration,
// unregistration and action processing for the same user must never
// interleave. The returned function releases the lock.
func (s *Store) LockUser(userID string) func() {
	s.mu.Lock()
	m, ok := s.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		s.locks[userID] = m
	}
	s.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// Get returns the cached record for userID, hitting the database only on
// the first lookup. Confirmed absences are cached too, so unregistered
// users cost at most one query. The returned pointer is the cache entry
// itself; callers must hold the user's lock to mutate it.
func (s *Store) Get(ctx context.Context, userID string) (*User, error) {
	s.mu.Lock()
	cached, ok := s.cache[userID]
	s.mu.Unlock()
	if ok {
		if cached == nil {
			return nil, ErrNotRegistered
		}
		return cached, nil
	}

	var row User
	err := s.db.WithContext(ctx).First(&row, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.mu.Lock()
		s.cache[userID] = nil
		s.mu.Unlock()
		return nil, ErrNotRegistered
	}
	if err != nil {
		return nil, fmt.Errorf("looking up user %s: %w", userID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Another goroutine may have filled the entry while we queried
	if cached, ok := s.cache[userID]; ok && cached != nil {
		return cached, nil
	}
	s.cache[userID] = &row
	return &row, nil
}

// Lookup is the read-only variant of Get for command handlers. It returns
// a copy of the record so callers never alias the live cache entry.
func (s *Store) Lookup(ctx context.Context, userID string) (User, error) {
	unlock := s.LockUser(userID)
	defer unlock()
	u, err := s.Get(ctx, userID)
	if err != nil {
		return User{}, err
	}
	return *u, nil
}

// Create registers a user with the lifecycle defaults: zero points, zero
// personal best, and a last action of message create stamped now.
func (s *Store) Create(ctx context.Context, userID string) (User, error) {
	unlock := s.LockUser(userID)
	defer unlock()

	if _, err := s.Get(ctx, userID); err == nil {
		return User{}, ErrAlreadyRegistered
	} else if !errors.Is(err, ErrNotRegistered) {
		return User{}, err
	}

	row := User{
		UserID:              userID,
		LastActionType:      ActionMessageCreate,
		LastActionTimestamp: s.now().Unix(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return User{}, fmt.Errorf("creating user %s: %w", userID, err)
	}

	s.mu.Lock()
	s.cache[userID] = &row
	s.mu.Unlock()
	return row, nil
}

// Delete unregisters a user, removing the row, the cache entry and any
// pending write-buffer entry. Once Delete returns, Get reports the user
// as not registered and no buffered update can resurrect the row.
func (s *Store) Delete(ctx context.Context, userID string) error {
	unlock := s.LockUser(userID)
	defer unlock()

	if _, err := s.Get(ctx, userID); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&User{}, "user_id = ?", userID).Error; err != nil {
		return fmt.Errorf("deleting user %s: %w", userID, err)
	}

	s.mu.Lock()
	s.cache[userID] = nil
	s.mu.Unlock()
	if s.buffer != nil {
		s.buffer.Forget(userID)
	}
	return nil
}

// Top returns the highest scoring users straight from the database.
// Flush the write buffer first if the ranking needs to include points
// that are still dirty.
func (s *Store) Top(ctx context.Context, limit int) ([]User, error) {
	var rows []User
	if err := s.db.WithContext(ctx).Order("points DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing top users: %w", err)
	}
	return rows, nil
}

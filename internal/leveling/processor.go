package leveling

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
)

// Processor is the entry point for every tracked action observed on the
// gateway. It only ever mutates records that already exist; opting in and
// out is owned by the command handlers through the store.
type Processor struct {
	store  *Store
	buffer *Buffer
	scale  int64
}

// NewProcessor wires the store and write buffer together. scale is the
// number of idle seconds that make up one scoring unit.
func NewProcessor(store *Store, buffer *Buffer, scale int64) *Processor {
	if scale < 1 {
		scale = 1
	}
	return &Processor{store: store, buffer: buffer, scale: scale}
}

// ProcessAction awards points for the gap since the user's previous
// action and stamps the new one. Bots and unregistered users are dropped
// silently. Storage failures on the first cache fill are returned for
// logging but are not fatal to anything.
func (p *Processor) ProcessAction(ctx context.Context, userID string, isBot bool, action Action, timestamp int64) error {
	if isBot {
		return nil
	}

	unlock := p.store.LockUser(userID)
	defer unlock()

	rec, err := p.store.Get(ctx, userID)
	if errors.Is(err, ErrNotRegistered) {
		return nil
	}
	if err != nil {
		return err
	}

	elapsed := timestamp - rec.LastActionTimestamp
	delta := Points(elapsed, p.scale)
	log.Debug().
		Str("user", userID).
		Str("action", string(action)).
		Int64("elapsed", elapsed).
		Int64("delta", delta).
		Int64("points", rec.Points+delta).
		Msg("Updating user")

	p.buffer.Update(rec, func(u *User) {
		u.Points += delta
		u.LastActionType = action
		u.LastActionTimestamp = timestamp
	}, ColPoints, ColLastActionType, ColLastActionTimestamp)

	p.buffer.MaybeFlush(ctx)
	return nil
}

// Projected returns the points the user would have if an action arrived
// at now: the stored total plus the delta for the current gap.
func (p *Processor) Projected(u User, now int64) int64 {
	return u.Points + Points(now-u.LastActionTimestamp, p.scale)
}

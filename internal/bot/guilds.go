package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GuildConfig is the per-guild configuration row. Only the command prefix
// is configurable for now.
type GuildConfig struct {
	GuildID string `gorm:"primaryKey;column:guild_id"`
	Prefix  string `gorm:"column:prefix"`
}

func (GuildConfig) TableName() string {
	return "guild_configs"
}

// guildConfigs caches guild rows, storing nil for guilds with no
// configuration so each guild costs at most one query. Handlers run on
// their own goroutines, so cached rows are never mutated in place:
// setPrefix publishes a fresh entry and readers always receive a copy.
type guildConfigs struct {
	db            *gorm.DB
	defaultPrefix string

	mu    sync.Mutex
	cache map[string]*GuildConfig
}

func newGuildConfigs(db *gorm.DB, defaultPrefix string) *guildConfigs {
	return &guildConfigs{
		db:            db,
		defaultPrefix: defaultPrefix,
		cache:         make(map[string]*GuildConfig),
	}
}

// prefix returns the command prefix in effect for a guild, falling back
// to the default when the guild has no configuration or the lookup fails.
func (g *guildConfigs) prefix(ctx context.Context, guildID string) string {
	cfg, ok, err := g.get(ctx, guildID)
	if err != nil || !ok {
		return g.defaultPrefix
	}
	return cfg.Prefix
}

// get returns a copy of the guild's config and whether the guild has one.
func (g *guildConfigs) get(ctx context.Context, guildID string) (GuildConfig, bool, error) {
	g.mu.Lock()
	cached, ok := g.cache[guildID]
	g.mu.Unlock()
	if ok {
		if cached == nil {
			return GuildConfig{}, false, nil
		}
		return *cached, true, nil
	}

	var row GuildConfig
	err := g.db.WithContext(ctx).First(&row, "guild_id = ?", guildID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		g.mu.Lock()
		defer g.mu.Unlock()
		// A concurrent setPrefix may have published an entry while we
		// queried; never downgrade it to a negative one
		if cached, ok := g.cache[guildID]; ok {
			if cached == nil {
				return GuildConfig{}, false, nil
			}
			return *cached, true, nil
		}
		g.cache[guildID] = nil
		return GuildConfig{}, false, nil
	}
	if err != nil {
		return GuildConfig{}, false, fmt.Errorf("looking up guild %s: %w", guildID, err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	// Same story: a fresher entry beats our possibly stale query result
	if cached, ok := g.cache[guildID]; ok && cached != nil {
		return *cached, true, nil
	}
	g.cache[guildID] = &row
	return row, true, nil
}

// setPrefix upserts the guild's config row and publishes a fresh cache
// entry. Concurrent calls for the same guild are serialized by the
// database, last writer wins.
func (g *guildConfigs) setPrefix(ctx context.Context, guildID string, prefix string) error {
	row := GuildConfig{GuildID: guildID, Prefix: prefix}
	err := g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "guild_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"prefix"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("saving config for guild %s: %w", guildID, err)
	}

	g.mu.Lock()
	g.cache[guildID] = &row
	g.mu.Unlock()
	return nil
}

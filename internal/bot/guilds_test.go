package bot

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func setupGuildTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&GuildConfig{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestGuildPrefixDefault(t *testing.T) {
	guilds := newGuildConfigs(setupGuildTestDB(t), "!!!")
	if prefix := guilds.prefix(context.Background(), "g1"); prefix != "!!!" {
		t.Fatalf("prefix = %q, want default", prefix)
	}
}

func TestGuildPrefixOverride(t *testing.T) {
	db := setupGuildTestDB(t)
	guilds := newGuildConfigs(db, "!!!")
	ctx := context.Background()

	if err := guilds.setPrefix(ctx, "g1", "??"); err != nil {
		t.Fatalf("set prefix: %v", err)
	}
	if prefix := guilds.prefix(ctx, "g1"); prefix != "??" {
		t.Fatalf("prefix = %q, want ??", prefix)
	}
	// Other guilds keep the default
	if prefix := guilds.prefix(ctx, "g2"); prefix != "!!!" {
		t.Fatalf("prefix = %q, want default", prefix)
	}

	// Change it again, now through the update path
	if err := guilds.setPrefix(ctx, "g1", "$"); err != nil {
		t.Fatalf("update prefix: %v", err)
	}
	if prefix := guilds.prefix(ctx, "g1"); prefix != "$" {
		t.Fatalf("prefix = %q, want $", prefix)
	}

	// The override is persistent, not just cached
	fresh := newGuildConfigs(db, "!!!")
	if prefix := fresh.prefix(ctx, "g1"); prefix != "$" {
		t.Fatalf("persisted prefix = %q, want $", prefix)
	}
}

func TestGuildSetPrefixExistingRow(t *testing.T) {
	db := setupGuildTestDB(t)
	ctx := context.Background()
	if err := db.Create(&GuildConfig{GuildID: "g1", Prefix: "??"}).Error; err != nil {
		t.Fatalf("seed config: %v", err)
	}

	// A fresh cache does not know about the row yet, as after losing a
	// race to another writer
	guilds := newGuildConfigs(db, "!!!")
	if err := guilds.setPrefix(ctx, "g1", "$"); err != nil {
		t.Fatalf("set prefix over existing row: %v", err)
	}
	if prefix := guilds.prefix(ctx, "g1"); prefix != "$" {
		t.Fatalf("prefix = %q, want $", prefix)
	}
}

func TestGuildPrefixConcurrentAccess(t *testing.T) {
	db := setupGuildTestDB(t)
	guilds := newGuildConfigs(db, "!!!")
	ctx := context.Background()

	// Fill the cache first so the loops below hammer it directly
	guilds.prefix(ctx, "g1")
	if err := guilds.setPrefix(ctx, "g1", "$"); err != nil {
		t.Fatalf("set prefix: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			guilds.prefix(ctx, "g1")
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			if err := guilds.setPrefix(ctx, "g1", "$"); err != nil {
				t.Errorf("set prefix: %v", err)
				return
			}
		}
	}()
	wg.Wait()

	if prefix := guilds.prefix(ctx, "g1"); prefix != "$" {
		t.Fatalf("prefix = %q, want $", prefix)
	}
}

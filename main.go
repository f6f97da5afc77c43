package main

import (
	"os"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"gooutside/internal/bot"
	"gooutside/internal/config"
	"gooutside/internal/leveling"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("Could not load configuration")
	}
	zerolog.SetGlobalLevel(cfg.LogLevel)

	db, err := gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("Could not open database")
	}
	if err := db.AutoMigrate(&leveling.User{}, &bot.GuildConfig{}); err != nil {
		log.Fatal().Err(err).Msg("Could not migrate database")
	}

	b, err := bot.New(cfg, db)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not create discord bot")
	}

	if err := b.Run(); err != nil {
		log.Fatal().Err(err).Msg("Bot exited with error")
	}
}

package main

import (
	"os"

	"github.com/cameroncuttingedge/tictacfour/api"
	"github.com/cameroncuttingedge/tictacfour/config"
	"github.com/cameroncuttingedge/tictacfour/docstore"
	"github.com/cameroncuttingedge/tictacfour/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	InitializeLogger(cfg)

	store, closeStore, err := openStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("store", cfg.Store).Msg("Failed to open store")
	}
	defer closeStore()

	hub := websocket.NewHub(store)
	log.Info().Str("store", cfg.Store).Msg("Starting App")

	if err := api.StartAPI(cfg.Addr(), api.NewRouter(store, hub, cfg.PublicURL)); err != nil {
		log.Error().Err(err).Msg("Server stopped")
	}
}

func openStore(cfg config.Config) (docstore.Store, func(), error) {
	if cfg.Store == config.SQLiteStore {
		s, err := docstore.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	}
	return docstore.NewMemoryStore(), func() {}, nil
}

func InitializeLogger(cfg config.Config) {
	if !cfg.Logging {
		log.Logger = log.Output(os.Stdout)
	} else {
		runLogFile, err := os.OpenFile(
			cfg.LogFile,
			os.O_APPEND|os.O_CREATE|os.O_WRONLY,
			0664,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open log file")
		}
		multi := zerolog.MultiLevelWriter(runLogFile, os.Stdout)
		log.Logger = zerolog.New(multi).With().Timestamp().Logger()
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("Unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

package main

import (
	"github.com/wfunc/matchserver/config"
	"github.com/wfunc/matchserver/logger"
	"github.com/wfunc/matchserver/monitor"
	"github.com/wfunc/matchserver/persistence"
	"github.com/wfunc/matchserver/server"
)

func main() {
	// Initialize logger
	logger.Init()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Database (optional; the lobby runs fully in memory without it)
	var db persistence.Database
	if cfg.Database.Enabled {
		db, err = persistence.NewGormPostgreSQL(
			cfg.Database.Postgres.Host,
			cfg.Database.Postgres.Port,
			cfg.Database.Postgres.User,
			cfg.Database.Postgres.Password,
			cfg.Database.Postgres.DBName,
		)
		if err != nil {
			logger.Log.Fatalf("Failed to connect to database: %v", err)
		}
		logger.Log.Info("Database connection successful.")
	}

	// Initialize Monitoring
	mon := monitor.NewMonitor("matchserver")
	mon.StartServer(cfg.Server.MetricsAddress)

	// Initialize Lobby Server
	lobbyServer := server.NewLobbyServer(server.Config{
		HTTPAddress:    cfg.Server.HTTPAddress,
		RPCAddress:     cfg.Server.RPCAddress,
		RoomCount:      cfg.Lobby.RoomCount,
		Level:          cfg.Lobby.Level,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		DB:             db,
		Monitor:        mon,
	})

	// Start Server
	logger.Log.Infof("Starting lobby server on %s", cfg.Server.HTTPAddress)
	if err := lobbyServer.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}

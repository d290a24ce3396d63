// Package main initializes and starts the face-authentication daemon,
// setting up configuration, logging, the optional audit database, event
// publishing, backend clients, the engine, the gate, and the control API.
package main

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"time"

	nethttp "net/http"

	"github.com/NhanHoThanh/smart-home-faceauth/internal/config"
	"github.com/NhanHoThanh/smart-home-faceauth/internal/db"
	"github.com/NhanHoThanh/smart-home-faceauth/internal/devices"
	"github.com/NhanHoThanh/smart-home-faceauth/internal/events"
	"github.com/NhanHoThanh/smart-home-faceauth/internal/faceid"
	"github.com/NhanHoThanh/smart-home-faceauth/internal/logger"
	"github.com/NhanHoThanh/smart-home-faceauth/internal/models"
	"github.com/NhanHoThanh/smart-home-faceauth/internal/repository"
	"github.com/NhanHoThanh/smart-home-faceauth/internal/server/handler/http"
	"github.com/NhanHoThanh/smart-home-faceauth/internal/service"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line, config file, and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Println("failed to init logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Log.Sync() }()
	zapLogger := log.Log

	// Initialize the optional audit trail.
	var audit service.AuditRecorder
	if options.DatabaseDSN != "" {
		auditDB, err := db.InitPostgres(options.DatabaseDSN)
		if err != nil {
			zapLogger.Fatal("cannot init audit database", zap.Error(err))
		}

		db.StartAuditCleaner(context.Background(), auditDB,
			time.Hour,       // interval
			90*24*time.Hour, // retention: 90 days
			zapLogger,
		)

		audit = repository.NewPostgresAuditRepository(auditDB)
	}

	// Initialize in-process event publishing for the rest of the app.
	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	publisher := events.NewPublisher(pubsub)

	// Initialize backend clients.
	registry := faceid.NewRegistry(options.BackendURL, options.VerifyTimeout, zapLogger)
	doors := devices.NewClient(options.BackendURL, options.VerifyTimeout, zapLogger)

	// Wire the engine, gate, and orchestration service. The engine's notify
	// hook is bound after construction because the service holds the engine.
	var svc *service.Service
	engine := faceid.NewEngine(registry, func(event models.AuthEvent) {
		svc.HandleAuthEvent(event)
	}, zapLogger)
	gate := faceid.NewGate(engine, doors, options.DoorDeviceID, zapLogger)
	svc = service.NewFaceAuthService(registry, engine, gate, publisher, audit, zapLogger)

	// Build the router with middleware and routes.
	handler := &http.FaceAuthHandler{Service: svc}
	router := http.NewRouter(handler, options.APIToken, zapLogger)

	server := &nethttp.Server{
		Addr:    options.Addr,
		Handler: router,
	}

	zapLogger.Info("starting control API",
		zap.String("addr", options.Addr),
		zap.String("backend", options.BackendURL),
		zap.String("door", options.DoorDeviceID),
	)
	if err := server.ListenAndServe(); err != nil {
		zapLogger.Fatal("failed to start control API", zap.Error(err))
	}
}

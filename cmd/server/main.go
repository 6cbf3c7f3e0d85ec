package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/truckwell/dispatch-voice-service/internal/config"
	"github.com/truckwell/dispatch-voice-service/internal/handler"
	"github.com/truckwell/dispatch-voice-service/pkg/logger"
	"go.uber.org/zap"
)

// Server is the dispatch voice service HTTP server
type Server struct {
	config         *config.Config
	router         *mux.Router
	handlerManager *handler.HandlerManager
}

// NewServer creates a new dispatch voice service server
func NewServer(cfg *config.Config) (*Server, error) {
	if _, err := logger.Init(cfg.LogEnv); err != nil {
		logger.Base().Error("Failed to initialize zap logger, falling back to std log")
	}

	router := mux.NewRouter()

	handlerManager, err := handler.NewHandlerManager(cfg)
	if err != nil {
		logger.Base().Error("Failed to initialize handler manager", zap.Error(err))
		return nil, err
	}

	handlerManager.SetupAllRoutes(router)

	return &Server{
		config:         cfg,
		router:         router,
		handlerManager: handlerManager,
	}, nil
}

// Start starts the server
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%s", s.config.Port)

	server := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Base().Info("Starting server", zap.String("addr", addr))
	return server.ListenAndServe()
}

func main() {
	// .env is for local development; deployment environments set real env vars
	if err := godotenv.Load(); err != nil {
		log.Printf("Info: .env file not found or skipped (expected in production): %v", err)
	}

	cfg := config.LoadFromEnv()

	server, err := NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}
	defer logger.Sync()

	logger.Base().Info("Server initialized successfully", zap.String("port", cfg.Port))

	if err := server.Start(); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/truckwell/dispatch-voice-service/internal/adapters/llm"
	"github.com/truckwell/dispatch-voice-service/internal/adapters/retell"
	"github.com/truckwell/dispatch-voice-service/internal/cache"
	"github.com/truckwell/dispatch-voice-service/internal/config"
	"github.com/truckwell/dispatch-voice-service/internal/repository"
	agentservice "github.com/truckwell/dispatch-voice-service/internal/services/agent"
	callservice "github.com/truckwell/dispatch-voice-service/internal/services/call"
	conversationservice "github.com/truckwell/dispatch-voice-service/internal/services/conversation"
	"github.com/truckwell/dispatch-voice-service/internal/services/postprocess"
	webhookservice "github.com/truckwell/dispatch-voice-service/internal/services/webhook"
	"github.com/truckwell/dispatch-voice-service/pkg/logger"
	"go.uber.org/zap"
)

// HandlerManager creates all services and handlers and wires routes.
type HandlerManager struct {
	config      *config.Config
	repoManager repository.RepositoryManager

	webhookHandler      *WebhookHandler
	callHandler         *CallHandler
	conversationHandler *ConversationHandler
	agentHandler        *AgentHandler
	driverHandler       *DriverHandler
}

// NewHandlerManager creates and initializes all handlers and services
func NewHandlerManager(cfg *config.Config) (*HandlerManager, error) {
	repoManager, err := repository.NewRepositoryManager()
	if err != nil {
		logger.Base().Error("failed to connect to database", zap.Error(err))
		return nil, err
	}

	retellClient := retell.NewClient(cfg.RetellBaseURL, cfg.RetellAPIKey, cfg.RetellDefaultVoiceID)
	llmClient := llm.NewClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel)

	redisClient := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	agentCache := cache.NewAgentCache(repoManager.Agent(), redisClient)

	extractor := postprocess.NewService(llmClient)
	webhookSvc := webhookservice.NewService(repoManager, agentCache, retellClient, extractor)
	callSvc := callservice.NewService(repoManager, retellClient, webhookSvc, cfg.EndCallGracePeriod)
	conversationSvc := conversationservice.NewService(repoManager)
	agentSvc := agentservice.NewService(repoManager, agentCache, retellClient, llmClient)

	return &HandlerManager{
		config:              cfg,
		repoManager:         repoManager,
		webhookHandler:      NewWebhookHandler(webhookSvc, cfg.WebhookRateLimit),
		callHandler:         NewCallHandler(callSvc),
		conversationHandler: NewConversationHandler(conversationSvc),
		agentHandler:        NewAgentHandler(agentSvc),
		driverHandler:       NewDriverHandler(repoManager.Driver()),
	}, nil
}

// SetupAllRoutes sets up every route exposed by the service.
func (m *HandlerManager) SetupAllRoutes(router *mux.Router) {
	router.Use(LoggingMiddleware)

	router.HandleFunc("/", m.handleRoot).Methods("GET")
	router.HandleFunc("/health", m.handleHealth).Methods("GET")

	// Webhook ingress stays outside the API-key check; the provider does not
	// send our key.
	m.webhookHandler.SetupRoutes(router)

	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.Use(CORSMiddleware)
	apiRouter.Use(APIKeyMiddleware(m.config.APIKey))

	m.callHandler.SetupRoutes(apiRouter)
	m.conversationHandler.SetupRoutes(apiRouter)
	m.agentHandler.SetupRoutes(apiRouter)
	m.driverHandler.SetupRoutes(apiRouter)

	logger.Base().Info("All routes registered")
}

func (m *HandlerManager) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Dispatch Voice Service",
		"status":  "running",
	})
}

func (m *HandlerManager) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := m.repoManager.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Close releases the handler manager's resources.
func (m *HandlerManager) Close() error {
	return m.repoManager.Close()
}

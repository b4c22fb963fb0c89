package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/tlxsante/assistant/internal/api/handler"
	customMiddleware "github.com/tlxsante/assistant/internal/api/middleware"
	"github.com/tlxsante/assistant/internal/config"
	"github.com/tlxsante/assistant/internal/flow"
	"github.com/tlxsante/assistant/internal/intent"
	"github.com/tlxsante/assistant/internal/kb"
	"github.com/tlxsante/assistant/internal/lang"
	"github.com/tlxsante/assistant/internal/llm"
	"github.com/tlxsante/assistant/internal/llm/gemini"
	"github.com/tlxsante/assistant/internal/llm/openai"
	"github.com/tlxsante/assistant/internal/repository/redis"
	"github.com/tlxsante/assistant/internal/session"
	"github.com/tlxsante/assistant/internal/webhook"
)

// NewRouter wires the full turn pipeline and configures the HTTP router.
// redisClient may be nil; rate limiting is then disabled.
func NewRouter(cfg *config.Config, index *kb.Index, redisClient *redis.Client) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.MiddlewareTimeout))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Session-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// LLM router with providers
	llmRouter := llm.NewRouter(cfg.LLM.DefaultProvider)
	log.Info().Msgf("Initializing LLM providers. Default: %s", cfg.LLM.DefaultProvider)
	if cfg.LLM.OpenAI.APIKey != "" {
		llmRouter.RegisterProvider(openai.NewProvider(
			cfg.LLM.OpenAI.APIKey, cfg.LLM.OpenAI.Model, cfg.LLM.OpenAI.EmbedModel))
	}
	if cfg.LLM.Gemini.APIKey != "" {
		llmRouter.RegisterProvider(gemini.NewProvider(cfg.LLM.Gemini))
	}
	if len(llmRouter.ListProviders()) == 0 {
		log.Warn().Msg("no LLM provider configured, running with lexical retrieval and canned replies only")
	}

	// Retrieval over the shared index
	var embedder kb.Embedder
	if cfg.Knowledge.UseEmbeddings {
		embedder = llmRouter
	}
	retriever := kb.NewRetriever(index, embedder, llmRouter, kb.Options{
		FastThreshold: cfg.Knowledge.FastThreshold,
		Floor:         cfg.Knowledge.Floor,
		Translate:     cfg.Knowledge.Translate,
		Timeout:       cfg.LLM.RequestTimeout,
	})

	// Turn pipeline
	var classifier lang.Classifier
	if cfg.LLM.DetectLanguage {
		classifier = llmRouter
	}
	resolver := lang.NewResolver(classifier, cfg.LLM.RequestTimeout)
	store := session.NewStore()
	dispatcher := webhook.NewDispatcher(cfg.Webhook.URL, cfg.Webhook.Timeout, int(cfg.Webhook.Attempts))
	controller := flow.NewController(
		store,
		resolver,
		intent.NewClassifier(),
		retriever,
		llmRouter,
		flow.NewAttachmentPolicy(cfg.Uploads.MaxSizeBytes),
		dispatcher,
		cfg.LLM.RequestTimeout,
	)

	// Handlers
	chatHandler := handler.NewChatHandler(controller, cfg.Uploads.MaxSizeBytes)
	kbHandler := handler.NewKBHandler(index, retriever)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(index, store))

		r.Group(func(r chi.Router) {
			if redisClient != nil {
				rateLimiter := redis.NewRateLimiter(
					redisClient,
					cfg.RateLimit.RequestsPerMinute,
					cfg.RateLimit.Burst,
				)
				r.Use(customMiddleware.NewRateLimitMiddleware(rateLimiter).Limit)
			}

			r.Post("/chat", chatHandler.Turn)

			r.Route("/kb", func(r chi.Router) {
				r.Post("/ask", kbHandler.Ask)
				r.Get("/status", kbHandler.Status)
				r.Post("/reload", kbHandler.Reload)
				r.Post("/clean", kbHandler.Clean)
			})
		})
	})

	return r
}

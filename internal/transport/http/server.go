package http

import (
	stdhttp "net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wiredm-server/internal/auth"
	"github.com/vovakirdan/wiredm-server/internal/config"
	"github.com/vovakirdan/wiredm-server/internal/core"
	"github.com/vovakirdan/wiredm-server/internal/service/messages"
	"github.com/vovakirdan/wiredm-server/internal/validation"
)

var registerBindingOnce sync.Once

// NewServer builds an HTTP server with the realtime endpoint and the Request API.
func NewServer(hub *core.Hub, svc *messages.Service, verifier auth.Verifier, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	registerBindingOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			validation.Register(v)
		}
	})

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handlers := NewMessageHandlers(svc, hub, logger)

	api := router.Group("/api/messages")
	api.Use(AuthMiddleware(verifier, logger))
	{
		api.POST("", handlers.Send)
		api.GET("/conversations", handlers.Conversations)
		api.GET("/conversations/:userId", handlers.Conversations)
		api.GET("/:otherUserId", handlers.History)
		api.PATCH("/:otherUserId/read", handlers.MarkRead)
		api.DELETE("/:messageId", handlers.Delete)
	}

	// The upgrade hijacks the connection; gin's writer refuses that once headers are flushed.
	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(hub, cfg, logger))
	mux.Handle("/", router)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}

package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"stayregister/internal/infra/config"
	"stayregister/internal/infra/obs"
)

type ApartmentsHTTP interface {
	List(c *gin.Context)
}

type StaysHTTP interface {
	List(c *gin.Context)
	Groups(c *gin.Context)
	Calendar(c *gin.Context)
	Create(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
}

type ExportsHTTP interface {
	Document(c *gin.Context)
	PDF(c *gin.Context)
}

type Handlers struct {
	Apartments     ApartmentsHTTP
	Stays          StaysHTTP
	Exports        ExportsHTTP
	AuthMiddleware gin.HandlerFunc
	// ExportLimit guards the export routes; nil disables throttling.
	ExportLimit gin.HandlerFunc
	Metrics     *obs.Metrics
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter builds the route table without touching the global gin mode.
func NewRouter(obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	if h.Metrics != nil {
		router.Use(h.Metrics.HTTPMiddleware())
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"Content-Disposition",
			"X-Request-ID",
			"X-Export-Outcome",
		},
		MaxAge: 12 * time.Hour,
	}))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)
	if h.Metrics != nil {
		router.GET("/metrics", gin.WrapH(h.Metrics.Handler()))
	}

	api := router.Group("/api/v1")
	if h.Apartments != nil {
		api.GET("/apartments", h.Apartments.List)
	}
	if h.Stays != nil {
		stays := api.Group("/stays")
		stays.GET("", h.Stays.List)
		stays.POST("", h.Stays.Create)
		stays.GET("/groups", h.Stays.Groups)
		stays.GET("/calendar", h.Stays.Calendar)
		stays.PUT("/:id", h.Stays.Update)
		stays.DELETE("/:id", h.Stays.Delete)
	}
	if h.Exports != nil {
		exports := api.Group("/exports")
		if h.ExportLimit != nil {
			exports.Use(h.ExportLimit)
		}
		exports.GET("/document", h.Exports.Document)
		exports.POST("/pdf", h.Exports.PDF)
	}
	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}

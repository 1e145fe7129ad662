package web

import (
	"context"
	"embed"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Skufu/StrokeRisk/internal/assessment"
	"github.com/Skufu/StrokeRisk/internal/logging"
	"github.com/Skufu/StrokeRisk/internal/metrics"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Options struct {
	// DB is nil when the audit store is disabled.
	DB      HealthChecker
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

func SetupRouter(svc *assessment.Service, opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestID(),
		requestLogger(logger),
		limitBodySize(1<<20), // 1MB max body
	)
	router.SetHTMLTemplate(loadTemplates())

	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	router.StaticFS("/static", http.FS(static))

	h := &handlers{svc: svc, logger: logger}
	router.GET("/", h.index)
	router.GET("/index.html", h.index)
	router.GET("/verification.html", h.verification)
	router.POST("/verification.html", h.verify)
	router.GET("/main.html", h.mainPage)
	router.POST("/main.html", h.assess)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/readyz", readiness(svc, opts.DB))

	if opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	api := router.Group("/api", cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))
	api.POST("/assessments", h.assessJSON)

	return router
}

func loadTemplates() *template.Template {
	funcs := template.FuncMap{
		"deref": func(p *float64) float64 { return *p },
	}
	return template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))
}

func readiness(svc *assessment.Service, db HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{"status": "ok", "model": "loaded", "db": "disabled"}
		code := http.StatusOK

		if !svc.Ready() {
			body["model"] = "unavailable"
			body["status"] = "degraded"
			code = http.StatusServiceUnavailable
		}

		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()

			body["db"] = "ok"
			if err := db.Ping(ctx); err != nil {
				body["db"] = "unhealthy: " + err.Error()
				body["status"] = "degraded"
				code = http.StatusServiceUnavailable
			}
		}

		c.JSON(code, body)
	}
}

func limitBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

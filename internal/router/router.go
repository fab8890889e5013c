package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "docextract/docs"
	"docextract/internal/auth"
	"docextract/internal/handler"
	"docextract/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
// verifier may be nil, which leaves the extraction routes open.
func Setup(
	verifier auth.TokenVerifier,
	corsOrigins []string,
	maxUploadBytes int64,
	extractH *handler.ExtractionHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()
	if maxUploadBytes > 0 {
		r.MaxMultipartMemory = maxUploadBytes
	}

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(corsOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	// API docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Original upload path, kept for existing clients
	r.POST("/upload", middleware.AuthMiddleware(verifier), extractH.Upload)

	v1 := r.Group("/api/v1")
	v1.Use(middleware.AuthMiddleware(verifier))

	extract := v1.Group("/extract")
	extract.POST("", extractH.Upload)
	extract.POST("/download", extractH.Download)

	return r
}

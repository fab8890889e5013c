package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"docextract/internal/auth"
	"docextract/internal/config"
	"docextract/internal/handler"
	"docextract/internal/llm/providers"
	"docextract/internal/logger"
	"docextract/internal/ocr/tesseract"
	"docextract/internal/port"
	"docextract/internal/reader"
	"docextract/internal/router"
	"docextract/internal/service"
	s3storage "docextract/internal/storage/s3"
)

// @title docextract API
// @version 1.0
// @description Document field extraction: upload a PDF or image, get the fields as a spreadsheet.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT.
func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger.Setup(&cfg.Log, os.Stdout)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Text generation: retry per provider, fallback across providers
	generator, providerNames, err := providers.Build(&cfg.Parser)
	if err != nil {
		return fmt.Errorf("failed to initialize llm providers: %w", err)
	}

	// OCR is optional; without it only PDFs with a text layer can be read
	var ocrEngine port.OCREngine
	if cfg.OCR.Enabled {
		engine, err := tesseract.New(cfg.OCR.Language)
		if err != nil {
			return fmt.Errorf("failed to initialize tesseract: %w", err)
		}
		defer engine.Close()
		ocrEngine = engine
	}
	docReader := reader.New(ocrEngine, reader.WithRasterizer(cfg.OCR.Pdftoppm, cfg.OCR.DPI, cfg.OCR.MaxPages))

	var storage port.ObjectStorage
	if cfg.S3.ArchiveEnabled {
		s3Client, err := s3storage.NewS3Client(ctx, &cfg.S3)
		if err != nil {
			return fmt.Errorf("failed to initialize S3 client: %w", err)
		}
		storage = s3Client
	}

	var verifier auth.TokenVerifier
	if cfg.Auth.Enabled() {
		verifier = auth.NewHMACVerifier(&cfg.Auth)
	}

	extractionSvc := service.NewExtractionService(docReader, generator, storage, &cfg.Upload, &cfg.S3, cfg.Server.RequestTimeout)

	extractH := handler.NewExtractionHandler(extractionSvc)
	healthH := handler.NewHealthHandler(providerNames, cfg.OCR.Enabled, cfg.S3.ArchiveEnabled)

	r := router.Setup(verifier, cfg.CORS.AllowedOrigins, cfg.Upload.MaxBytes(), extractH, healthH)

	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting",
			"addr", cfg.Server.Port,
			"providers", providerNames,
			"ocr", cfg.OCR.Enabled,
			"archive", cfg.S3.ArchiveEnabled,
			"auth", cfg.Auth.Enabled(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

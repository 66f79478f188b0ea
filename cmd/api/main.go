package main

import (
	"context"
	"crypto/rand"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"nutrilens/internal/assessment"
	"nutrilens/internal/auth"
	"nutrilens/internal/config"
	"nutrilens/internal/media"
	"nutrilens/internal/nutrition"
	"nutrilens/internal/server"
	"nutrilens/internal/storage"
	"nutrilens/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()
	store, err := storage.NewStore(ctx, cfg.Database.URL, cfg.Database.SQLitePath)
	if err != nil {
		log.Fatalf("failed to init store: %v", err)
	}
	defer store.Close()

	pages, err := web.NewRenderer(cfg.Server.TemplateDir)
	if err != nil {
		log.Fatalf("failed to load templates: %v", err)
	}

	var archive media.Uploader
	if cfg.Media.Bucket != "" && cfg.Media.Region != "" {
		archive, err = media.NewUploader(ctx, media.Config{
			Bucket:         cfg.Media.Bucket,
			Region:         cfg.Media.Region,
			Endpoint:       cfg.Media.Endpoint,
			PublicURL:      cfg.Media.PublicURL,
			KeyPrefix:      cfg.Media.KeyPrefix,
			ForcePathStyle: cfg.Media.ForcePathStyle,
		})
		if err != nil {
			log.Fatalf("failed to init photo archive: %v", err)
		}
	} else {
		archive, err = media.NewLocalUploader("")
		if err != nil {
			log.Fatalf("failed to init local photo storage: %v", err)
		}
		log.Println("photo archive: using local temp storage (S3 config missing)")
	}

	var analyzer nutrition.Analyzer
	switch {
	case strings.EqualFold(cfg.Vision.Provider, "gemini") && cfg.Vision.GeminiKey != "":
		analyzer = nutrition.NewGeminiAnalyzer(cfg.Vision.GeminiKey, cfg.Vision.GeminiModel, cfg.Vision.Timeout)
		log.Println("vision analyzer ready: Gemini")
	case cfg.Vision.APIKey != "":
		analyzer = nutrition.NewOpenAIAnalyzer(cfg.Vision.APIKey, cfg.Vision.Project, cfg.Vision.Model, cfg.Vision.Timeout)
		log.Println("vision analyzer ready: OpenAI")
	default:
		log.Println("WARNING: OPENAI_API_KEY is not set. Vision features will not work.")
	}

	sessions := auth.SessionManager{
		Secret:       sessionSecret(cfg.Session.Secret),
		Duration:     cfg.Session.Duration,
		SecureCookie: cfg.Session.Secure,
	}

	srv := server.New(cfg.Server, server.Handlers{
		Auth:       auth.Handler{Store: store, Sessions: sessions, Pages: pages},
		Session:    auth.Middleware{Store: store, Sessions: sessions},
		Assessment: assessment.Handler{Pages: pages},
		Nutrition:  nutrition.Handler{Analyzer: analyzer, Archive: archive, Pages: pages},
		Pages:      pages,
	})

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-shutdownChan
		log.Println("shutting down server...")
		if err := srv.Close(); err != nil {
			log.Printf("server close error: %v", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server failed: %v", err)
	}
}

// sessionSecret falls back to a random per-process secret so the app still
// runs without configuration; sessions then reset on restart.
func sessionSecret(configured string) []byte {
	if configured != "" {
		return []byte(configured)
	}
	log.Println("SESSION_SECRET not set, using a random per-process secret")
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		log.Fatalf("generate session secret: %v", err)
	}
	return secret
}

package server

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"nutrilens/internal/assessment"
	"nutrilens/internal/auth"
	"nutrilens/internal/config"
	"nutrilens/internal/nutrition"
	"nutrilens/internal/web"
)

// Handlers bundles the route handlers the server mounts.
type Handlers struct {
	Auth       auth.Handler
	Session    auth.Middleware
	Assessment assessment.Handler
	Nutrition  nutrition.Handler
	Pages      *web.Renderer
}

// New constructs the HTTP server with routes and middleware.
func New(cfg config.ServerConfig, h Handlers) *http.Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(h.Session.InjectUser)

	router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	})
	router.Get("/dashboard", func(w http.ResponseWriter, r *http.Request) {
		h.Pages.Render(w, r, "dashboard.html", nil)
	})

	router.Get("/login", h.Auth.LoginPage)
	router.Post("/login", h.Auth.Login)
	router.Get("/signup", h.Auth.SignupPage)
	router.Post("/signup", h.Auth.Signup)
	router.Get("/logout", h.Auth.Logout)

	router.Get("/assessment", h.Assessment.Page)
	router.Post("/assessment", h.Assessment.Submit)
	router.Post("/analyze", h.Assessment.Analyze)

	router.Get("/nutrition", h.Nutrition.Page)
	router.Post("/analyze_nutrition", h.Nutrition.AnalyzeUpload)
	router.Post("/analyze_nutrition_frame", h.Nutrition.AnalyzeFrame)

	// Serve static assets
	fileServer := http.FileServer(http.Dir(cfg.StaticDir))
	router.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	srv := &http.Server{
		Addr:         cfg.Address(),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	log.Println("server ready on", srv.Addr)
	return srv
}

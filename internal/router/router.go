package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"wordloop-backend/internal/handlers"
	"wordloop-backend/internal/middleware"
)

type Handlers struct {
	Auth       *handlers.AuthHandler
	Learning   *handlers.LearningHandler
	Article    *handlers.ArticleHandler
	User       *handlers.UserHandler
	Vocabulary *handlers.VocabularyHandler
	Job        *handlers.JobHandler
	WebSocket  http.HandlerFunc
}

func New(jwtAuth *middleware.JWTAuth, h Handlers, frontendURL string) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(frontendURL))

	// Auth rate limiter (10 req/min per IP)
	authLimiter := middleware.NewRateLimiter(10, time.Minute)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Auth Routes (public) ────
		r.Route("/auth", func(r chi.Router) {
			r.With(authLimiter.Middleware).Post("/register", h.Auth.Register)
			r.With(authLimiter.Middleware).Post("/login", h.Auth.Login)
			r.Post("/refresh", h.Auth.Refresh)

			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Post("/logout", h.Auth.Logout)
				r.Get("/me", h.Auth.Me)
			})
		})

		// ──── Review Routes ────
		r.Route("/learn", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/session", h.Learning.Session)
			r.Post("/submit", h.Learning.Submit)
			r.Get("/strange-count", h.Learning.StrangeCount)
		})

		// ──── Article Routes ────
		r.Route("/articles", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/next", h.Article.Next)
			r.Post("/{id}/complete", h.Article.Complete)
			r.Post("/{id}/progress", h.Article.Progress)
		})

		// ──── User Routes ────
		r.Route("/user", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/checkin", h.User.CheckIn)
			r.Get("/stats", h.User.Stats)
			r.Get("/leaderboard", h.User.Leaderboard)
		})

		// ──── Vocabulary Routes ────
		r.Route("/vocabulary", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/my-words", h.Vocabulary.MyWords)
			r.Get("/stats", h.Vocabulary.Stats)
		})

		// ──── Job Routes ────
		r.Route("/jobs", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/{id}", h.Job.GetJob)
		})

		// ──── WebSocket (token in query) ────
		r.Get("/ws", h.WebSocket)
	})

	return r
}

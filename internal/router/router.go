package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	mw "github.com/opinio-dev/opinio/internal/middleware"
	"github.com/opinio-dev/opinio/internal/middleware/metrics"
	rl "github.com/opinio-dev/opinio/internal/middleware/ratelimiter"
	"github.com/opinio-dev/opinio/internal/setup"
)

// New configures the full route tree. Rate limiters attached with .Use
// cover every endpoint of that subtree combined.
func New(deps *setup.Dependencies) chi.Router {
	cfg := deps.Config
	h := deps.Handler

	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(metrics.NewRecorder("opinio", prometheus.DefaultRegisterer).Middleware)
	r.Use(mw.SecurityHeaders(cfg.Public.SecureCookies))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.Public.ClientOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.Get("/health", h.Health)
	r.Method("GET", "/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		// global per-IP budget across the whole API
		api.Use(mw.RateLimit(rl.PerMinute(cfg.Public.RateLimitPerMinute, cfg.Public.RateLimitBurst), mw.GetIP))

		api.Route("/auth", func(auth chi.Router) {
			// endpoints that send mail get a stricter per-email budget
			otpSend := rl.NewKeyedLimiter(1.0/30, 2, time.Hour)
			auth.Post("/login", mw.LimitByIpAndEmail(otpSend, h.Login))
			auth.Post("/forgot", mw.LimitByIpAndEmail(otpSend, h.ForgotPassword))
			auth.Post("/resend-otp", mw.LimitByIpAndEmail(otpSend, h.ResendOtp))

			// code verification is the brute-force surface
			otpVerify := rl.NewKeyedLimiter(10.0/60, 10, time.Hour)
			auth.Post("/verify-otp", mw.LimitByIpAndEmail(otpVerify, h.VerifyOtp))

			auth.Post("/signup", h.Signup)
			auth.Post("/reset-password", h.ResetPassword)
			auth.Post("/logout", h.Logout)
			auth.Get("/me", h.Me)
		})

		api.Route("/public", func(public chi.Router) {
			public.Post("/feedback", h.CreateFeedback)
		})

		api.Route("/admin", func(admin chi.Router) {
			admin.Use(mw.RequireAdmin(deps.Issuer))
			admin.Get("/feedback", h.ListFeedback)
			admin.Get("/feedback/export", h.ExportFeedback)
			admin.Delete("/feedback/{id}", h.DeleteFeedback)
			admin.Get("/stats", h.FeedbackStats)
		})
	})

	// preflight requests should never 404
	r.MethodFunc("OPTIONS", "/*", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return r
}

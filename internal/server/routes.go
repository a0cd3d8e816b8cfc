package server

import (
	"net/http"

	"github.com/HakuMatsunoki/natours-api-typeorm/internal/models"
	"github.com/HakuMatsunoki/natours-api-typeorm/internal/server/handlers"
	"github.com/HakuMatsunoki/natours-api-typeorm/internal/server/metrics"
	"github.com/HakuMatsunoki/natours-api-typeorm/internal/server/middleware"
	"github.com/HakuMatsunoki/natours-api-typeorm/internal/server/token"
)

const healthPath = "/api/v1/health"

func (s *Server) routes() http.Handler {
	resp := handlers.NewResponder(s.logger, s.cfg.IsProduction())

	authH := handlers.NewAuthHandler(s.logger, s.svc, resp)
	userH := handlers.NewUserHandler(s.logger, s.svc, resp)
	healthH := handlers.NewHealthHandler(s.logger, s.store, resp)

	access := middleware.Authenticate(s.logger, s.authn, resp, token.Access)
	refresh := middleware.Authenticate(s.logger, s.authn, resp, token.Refresh)
	admin := func(h http.HandlerFunc) http.Handler {
		return access(middleware.RestrictTo(resp, models.RoleAdmin)(h))
	}

	api := http.NewServeMux()

	// auth
	api.HandleFunc("POST /api/v1/auth/signup", authH.Signup)
	api.HandleFunc("POST /api/v1/auth/login", authH.Login)
	api.Handle("POST /api/v1/auth/logout", access(http.HandlerFunc(authH.Logout)))
	api.Handle("POST /api/v1/auth/logoutAll", access(http.HandlerFunc(authH.LogoutAll)))
	api.Handle("POST /api/v1/auth/refresh", refresh(http.HandlerFunc(authH.Refresh)))
	api.HandleFunc("POST /api/v1/auth/forgotPasswd", authH.ForgotPassword)
	api.HandleFunc("POST /api/v1/auth/resetPasswd/{token}", authH.ResetPassword)
	api.Handle("PATCH /api/v1/auth/updateMyPasswd", access(http.HandlerFunc(authH.UpdatePassword)))

	// users: self service
	api.Handle("GET /api/v1/users/me", access(http.HandlerFunc(userH.Me)))
	api.Handle("GET /api/v1/users/me/sessions", access(http.HandlerFunc(userH.Sessions)))
	api.Handle("PATCH /api/v1/users/updateMyPasswd", access(http.HandlerFunc(authH.UpdatePassword)))
	api.Handle("PATCH /api/v1/users/updateMe", access(http.HandlerFunc(userH.UpdateMe)))
	api.Handle("DELETE /api/v1/users/deleteMe", access(http.HandlerFunc(userH.DeleteMe)))

	// users: administration
	api.Handle("GET /api/v1/users", admin(userH.List))
	api.Handle("POST /api/v1/users", admin(userH.Create))
	api.Handle("GET /api/v1/users/{id}", admin(userH.Get))
	api.Handle("PATCH /api/v1/users/{id}", admin(userH.Update))
	api.Handle("DELETE /api/v1/users/{id}", admin(userH.Delete))

	api.HandleFunc("GET "+healthPath, healthH.Health)
	api.HandleFunc("/", healthH.NotFound)

	root := http.NewServeMux()
	root.Handle("GET /metrics", metrics.Handler(s.registry))
	root.Handle("/", middleware.Chain(api,
		middleware.Recovery(s.logger, resp),
		middleware.RateLimit(s.cfg.RateLimitMax, s.cfg.RateLimitWindow, resp),
		middleware.Metrics(s.metrics),
		middleware.LoggingWithSkip(s.logger, []string{healthPath}),
		middleware.MaxBytes(s.cfg.RequestBodyMax),
	))

	return root
}

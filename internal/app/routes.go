package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/mailmerge/internal/handler"
	"github.com/mailmerge/internal/middleware"
	"github.com/mailmerge/internal/model"
	"github.com/mailmerge/internal/web"
)

func (app *App) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders)

	base := handler.BaseHandler{Logger: app.logger, MaxBodyBytes: app.config.MaxBodyBytes}

	// Health check and API description
	r.Get("/api/health", handler.Health(app.db))
	r.Get("/api/openapi.json", handler.OpenAPI(web.OpenAPI))

	emailHandler := handler.NewEmailHandler(base, nil)
	if app.config.LogInvocations {
		emailHandler = handler.NewEmailHandler(base, app.invocationStore)
	}

	keyMW := middleware.FunctionKey(app.authenticator)
	limitMW := middleware.RateLimit(rate.Limit(app.config.RateLimitRPS), app.config.RateLimitBurst)

	r.Group(func(r chi.Router) {
		r.Use(limitMW)
		if !app.config.Anonymous() {
			r.Use(keyMW, middleware.RequireScope(model.ScopeFunction))
		}
		r.Post("/api/EmailSetup", emailHandler.Setup)
	})

	// Admin routes always require an admin key
	r.Group(func(r chi.Router) {
		r.Use(limitMW, keyMW, middleware.RequireScope(model.ScopeAdmin))

		adminHandler := handler.NewAdminHandler(base, app.keyStore, app.invocationStore)
		r.Get("/api/admin/keys", adminHandler.ListKeys)
		r.Post("/api/admin/keys", adminHandler.CreateKey)
		r.Delete("/api/admin/keys/{id}", adminHandler.RevokeKey)
		r.Get("/api/admin/invocations", adminHandler.ListInvocations)
	})
	return r
}

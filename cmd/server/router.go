package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	announcementHandler "idbcrm/internal/announcements/handler"
	applicationHandler "idbcrm/internal/applications/handler"
	authHandler "idbcrm/internal/auth/handler"
	branchHandler "idbcrm/internal/branches/handler"
	catalogHandler "idbcrm/internal/catalog/handler"
	dashboardHandler "idbcrm/internal/dashboard/handler"
	followupHandler "idbcrm/internal/followups/handler"
	leadHandler "idbcrm/internal/leads/handler"
	noteHandler "idbcrm/internal/notes/handler"
	partnerHandler "idbcrm/internal/partners/handler"
	paymentHandler "idbcrm/internal/payments/handler"
	"idbcrm/internal/platform/middleware"
	ratelimitMiddleware "idbcrm/internal/ratelimit/middleware"
	timelineHandler "idbcrm/internal/timeline/handler"
	dErrors "idbcrm/pkg/domain-errors"
	"idbcrm/pkg/platform/httputil"
	"idbcrm/pkg/platform/middleware/admin"
	"idbcrm/pkg/platform/middleware/metadata"
	request "idbcrm/pkg/platform/middleware/request"
	"idbcrm/pkg/platform/middleware/requesttime"
)

func (a *app) router() http.Handler {
	logger := a.logger
	svc := a.services

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(logger))
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(request.Logger(logger))
	r.Use(middleware.LatencyMiddleware(a.metrics))
	if len(a.cfg.Server.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   a.cfg.Server.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", request.HeaderRequestID},
			ExposedHeaders:   []string{request.HeaderRequestID},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		checks := a.ready(r.Context())
		status := http.StatusOK
		for _, v := range checks {
			if v != "ok" {
				status = http.StatusServiceUnavailable
			}
		}
		httputil.WriteJSON(w, status, checks)
	})

	r.Group(func(r chi.Router) {
		r.Use(admin.RequireOpsToken(a.cfg.Server.OpsToken, logger))
		r.Handle("/metrics", promhttp.Handler())
		r.Get("/ops/outbox", a.handleOutboxStatus)
	})

	catalog := catalogHandler.New(svc.catalog, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(request.Timeout(a.cfg.Server.RequestTimeout))

		r.Group(func(r chi.Router) {
			r.Use(ratelimitMiddleware.LimitByIP(svc.loginLimits, logger))
			authHandler.New(svc.auth, logger).Register(r)
		})
		catalog.RegisterPublic(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(svc.tokens, svc.partners, logger))

			partnerHandler.New(svc.partners, logger).Register(r)
			branchHandler.New(svc.branches, logger).Register(r)
			leadHandler.New(svc.leads, logger).Register(r)
			timelineHandler.New(svc.timeline, logger).Register(r)
			noteHandler.New(svc.notes, logger).Register(r)
			followupHandler.New(svc.followups, logger).Register(r)
			applicationHandler.New(svc.applications, logger).Register(r)
			paymentHandler.New(svc.payments, logger).Register(r)
			announcementHandler.New(svc.announcements, logger).Register(r)
			dashboardHandler.New(svc.dashboard, logger).Register(r)
			catalog.Register(r)
		})
	})

	return r
}

func (a *app) handleOutboxStatus(w http.ResponseWriter, r *http.Request) {
	if a.outbox == nil {
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"enabled": false})
		return
	}
	pending, err := a.outbox.Pending(r.Context())
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "count pending outbox entries"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"enabled":    true,
		"publishing": a.producer != nil,
		"pending":    pending,
	})
}

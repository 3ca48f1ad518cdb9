package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"notification-service/internal/common/logger"
	"notification-service/internal/common/metrics"
	"notification-service/internal/delivery"
	"notification-service/internal/models"
	"notification-service/internal/service"
)

// NotificationAPI is the notification service surface the handlers
// depend on.
type NotificationAPI interface {
	Send(ctx context.Context, req service.SendRequest) (*models.Notification, error)
	Broadcast(ctx context.Context, req service.BroadcastRequest) (delivery.Result, error)
	List(ctx context.Context, authUserID string, unreadOnly bool, limit, offset int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id int64, authUserID string) error
	Delete(ctx context.Context, id int64, authUserID string) error
}

type TemplateAPI interface {
	Create(ctx context.Context, req service.CreateTemplateRequest) (*models.NotificationTemplate, error)
	Get(ctx context.Context, id int64) (*models.NotificationTemplate, error)
	List(ctx context.Context, typ string) ([]models.NotificationTemplate, error)
	Update(ctx context.Context, id int64, patch models.TemplatePatch) (*models.NotificationTemplate, error)
	Delete(ctx context.Context, id int64) error
}

type DeviceTokenAPI interface {
	Register(ctx context.Context, req service.RegisterTokenRequest) (*models.DeviceToken, error)
	Update(ctx context.Context, token, authUserID string, patch models.DeviceTokenPatch) (*models.DeviceToken, error)
	Delete(ctx context.Context, token, authUserID string) error
}

// HealthCheck reports readiness of a backing dependency.
type HealthCheck func(ctx context.Context) error

type Server struct {
	notifications NotificationAPI
	templates     TemplateAPI
	tokens        DeviceTokenAPI
	health        map[string]HealthCheck
	log           logger.Logger
	router        chi.Router
}

func New(
	notifications NotificationAPI,
	templates TemplateAPI,
	tokens DeviceTokenAPI,
	health map[string]HealthCheck,
	log logger.Logger,
) *Server {
	s := &Server{
		notifications: notifications,
		templates:     templates,
		tokens:        tokens,
		health:        health,
		log:           log.WithFields(map[string]interface{}{"component": "http"}),
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.recordDuration)

	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/device-tokens", func(r chi.Router) {
			r.Post("/", s.handleRegisterToken)
			r.Put("/", s.handleUpdateToken)
			r.Delete("/", s.handleDeleteToken)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Post("/", s.handleSendNotification)
			r.Post("/broadcast", s.handleBroadcast)
			r.Get("/", s.handleListNotifications)
			r.Patch("/status", s.handleMarkRead)
			r.Delete("/", s.handleDeleteNotification)
		})

		r.Route("/templates", func(r chi.Router) {
			r.Post("/", s.handleCreateTemplate)
			r.Get("/", s.handleListTemplates)
			r.Get("/{id}", s.handleGetTemplate)
			r.Put("/{id}", s.handleUpdateTemplate)
			r.Delete("/{id}", s.handleDeleteTemplate)
		})
	})

	return r
}

// recordDuration observes request latency per route pattern so the
// label cardinality stays bounded.
func (s *Server) recordDuration(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequestDuration.WithLabelValues(
			route, r.Method, strconv.Itoa(ww.Status()),
		).Observe(time.Since(start).Seconds())
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true
	for name, check := range s.health {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			healthy = false
			continue
		}
		checks[name] = "ok"
	}

	if !healthy {
		respondJSON(w, http.StatusServiceUnavailable, "Service degraded", checks)
		return
	}
	respondJSON(w, http.StatusOK, "ok", checks)
}

// idParam parses the {id} route parameter.
func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

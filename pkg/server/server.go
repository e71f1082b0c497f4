// Package server exposes the field intelligence HTTP API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"github.com/kafaat/sahool-intel/pkg/astral"
	"github.com/kafaat/sahool-intel/pkg/engine"
	"github.com/kafaat/sahool-intel/pkg/telemetry"
)

// Config for the HTTP API handler.
type Config struct {
	Orchestrator *engine.Orchestrator
	Scheduler    *astral.ScheduleBuilder
	Logger       *telemetry.Logger
	Metrics      *telemetry.Metrics
	BasePath     string
	Version      string
}

type apiErrorBody struct {
	Code    string `json:"code" example:"bad_request"`
	Message string `json:"message" example:"invalid date"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

func newAPIError(status int, code, message string) huma.StatusError {
	if code == "" {
		code = strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
	return &apiError{status: status, Body: apiErrorBody{Code: code, Message: message}}
}

// New returns an HTTP handler exposing the field intelligence API.
func New(cfg Config) (http.Handler, error) {
	if cfg.Orchestrator == nil {
		return nil, fmt.Errorf("orchestrator is required")
	}
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v1"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.NewNopLogger()
	}

	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg)
	}

	router := chi.NewRouter()
	router.Use(requestLogger(logger.NewComponentLogger("http")))

	if cfg.Metrics != nil {
		router.Handle("/metrics", cfg.Metrics.Handler())
	}

	hcfg := huma.DefaultConfig("Sahool Field Intelligence API", version)
	hcfg.OpenAPIPath = "/openapi"
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerHealth(group, cfg.Orchestrator)
	registerIntelligence(group, cfg.Orchestrator)
	registerSchedule(group, cfg.Scheduler)

	return router, nil
}

// requestLogger logs one line per request at debug level.
func requestLogger(log *telemetry.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.WithField("method", r.Method).
				WithField("path", r.URL.Path).
				WithField("duration_ms", time.Since(start).Milliseconds()).
				Debug("request handled")
		})
	}
}

// parseDate accepts YYYY-MM-DD and defaults to today's UTC date.
func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return date, nil
}

type healthBody struct {
	Status  string                              `json:"status" example:"ok"`
	Engines map[engine.Kind]engine.HealthStatus `json:"engines"`
}

func registerHealth(api huma.API, o *engine.Orchestrator) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Service and engine health",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body healthBody `json:"body"`
	}, error) {
		engines := o.GetEngineHealth()
		status := "ok"
		for _, h := range engines {
			if h.State != engine.HealthHealthy {
				status = "degraded"
				break
			}
		}
		return &struct {
			Body healthBody `json:"body"`
		}{Body: healthBody{Status: status, Engines: engines}}, nil
	})
}

func registerIntelligence(api huma.API, o *engine.Orchestrator) {
	huma.Register(api, huma.Operation{
		OperationID: "get-field-intelligence",
		Method:      http.MethodGet,
		Path:        "/fields/{field_id}/intelligence",
		Summary:     "Unified field intelligence",
		Description: "Generates (or serves from cache) the unified intelligence snapshot for a field and day.",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		FieldID string `path:"field_id"`
		Date    string `query:"date" example:"2026-04-12"`
		UserID  string `header:"X-User-Id"`
	}) (*struct {
		Body *engine.UnifiedIntelligence `json:"body"`
	}, error) {
		date, err := parseDate(input.Date)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error())
		}
		result := o.Generate(ctx, input.FieldID, date, input.UserID)
		return &struct {
			Body *engine.UnifiedIntelligence `json:"body"`
		}{Body: result}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "invalidate-field-intelligence",
		Method:      http.MethodDelete,
		Path:        "/fields/{field_id}/intelligence",
		Summary:     "Invalidate cached intelligence",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		FieldID string `path:"field_id"`
		Date    string `query:"date"`
	}) (*struct{}, error) {
		date, err := parseDate(input.Date)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error())
		}
		o.InvalidateCache(input.FieldID, date)
		return &struct{}{}, nil
	})
}

// ScheduleRequest is the daily schedule build input.
type ScheduleRequest struct {
	Date    string          `json:"date,omitempty" example:"2026-04-12"`
	Workers []astral.Worker `json:"workers,omitempty"`
}

func registerSchedule(api huma.API, builder *astral.ScheduleBuilder) {
	huma.Register(api, huma.Operation{
		OperationID:   "build-field-schedule",
		Method:        http.MethodPost,
		Path:          "/fields/{field_id}/schedule",
		Summary:       "Build a daily work schedule",
		Description:   "Builds the lunar-aware daily schedule for a field, assigning tasks to the given workers.",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusServiceUnavailable},
	}, func(ctx context.Context, input *struct {
		FieldID string          `path:"field_id"`
		Body    ScheduleRequest `json:"body"`
	}) (*struct {
		Body *astral.DailySchedule `json:"body"`
	}, error) {
		if builder == nil {
			return nil, newAPIError(http.StatusServiceUnavailable, "unavailable", "scheduling is not configured")
		}
		date, err := parseDate(input.Body.Date)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error())
		}
		schedule, err := builder.Build(ctx, input.FieldID, date, input.Body.Workers)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error())
		}
		return &struct {
			Body *astral.DailySchedule `json:"body"`
		}{Body: schedule}, nil
	})
}

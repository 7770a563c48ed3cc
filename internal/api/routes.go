package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/skillskit/skills-server/internal/ledger"
)

const (
	maxEventBytes      = 1 << 20
	healthCheckTimeout = 2 * time.Second
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))
	r.Post("/skills/{skill}", webhookHandler(cfg))

	// The ledger is only exposed when an admin token is configured.
	if cfg.AdminToken != "" && cfg.Ledger != nil {
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(cfg.AdminToken, cfg.Logger))

			r.Get("/invocations", listInvocationsHandler(cfg))
			r.Get("/invocations/{id}", getInvocationHandler(cfg))
		})
	}

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status:  "ok",
			Version: cfg.Version,
			UptimeS: int64(time.Since(cfg.StartTime).Seconds()),
			Skills:  cfg.Skills,
		}
		if resp.Skills == nil {
			resp.Skills = []string{}
		}

		status := http.StatusOK
		if len(cfg.Checks) > 0 {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			defer cancel()

			names := make([]string, 0, len(cfg.Checks))
			for name := range cfg.Checks {
				names = append(names, name)
			}
			sort.Strings(names)

			resp.Checks = make(map[string]string, len(names))
			for _, name := range names {
				if err := cfg.Checks[name](ctx); err != nil {
					cfg.Logger.Warn("health check failed", "check", name, "error", err)
					resp.Checks[name] = err.Error()
					resp.Status = "degraded"
					status = http.StatusServiceUnavailable
					continue
				}
				resp.Checks[name] = "ok"
			}
		}

		WriteJSON(w, status, resp)
	}
}

// webhookHandler answers every readable delivery with the processor's response.
func webhookHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		skill := chi.URLParam(r, "skill")

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEventBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				WriteError(w, http.StatusRequestEntityTooLarge, "event body too large", "BAD_REQUEST")
				return
			}
			WriteError(w, http.StatusBadRequest, "failed to read event body", "BAD_REQUEST")
			return
		}

		resp := cfg.Processor.Process(r.Context(), skill, body)
		WriteJSON(w, resp.StatusCode, resp)
	}
}

func listInvocationsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := ledger.Filter{
			Skill:  q.Get("skill"),
			Status: q.Get("status"),
			FileID: q.Get("file_id"),
		}
		if l := q.Get("limit"); l != "" {
			limit, err := strconv.Atoi(l)
			if err != nil || limit < 1 {
				WriteError(w, http.StatusBadRequest, "limit must be a positive integer", "BAD_REQUEST")
				return
			}
			filter.Limit = limit
		}

		invs, err := cfg.Ledger.List(r.Context(), filter)
		if err != nil {
			cfg.Logger.Error("failed to list invocations", "error", err)
			WriteError(w, http.StatusInternalServerError, "failed to list invocations", "INTERNAL_ERROR")
			return
		}
		summary, err := cfg.Ledger.Summary(r.Context())
		if err != nil {
			cfg.Logger.Error("failed to summarize invocations", "error", err)
			WriteError(w, http.StatusInternalServerError, "failed to list invocations", "INTERNAL_ERROR")
			return
		}

		resp := InvocationsResponse{
			Invocations: make([]InvocationResponse, len(invs)),
			Summary:     summary,
		}
		for i, inv := range invs {
			resp.Invocations[i] = InvocationToResponse(inv)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getInvocationHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "invocation id required", "BAD_REQUEST")
			return
		}

		inv, err := cfg.Ledger.Get(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if inv == nil {
			WriteError(w, http.StatusNotFound, "invocation not found", "NOT_FOUND")
			return
		}

		WriteJSON(w, http.StatusOK, InvocationToResponse(inv))
	}
}

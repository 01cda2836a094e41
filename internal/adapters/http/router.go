// Package http serves resolved admin view models as JSON over chi.
package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	admin "github.com/goliatone/go-admin"
	"github.com/goliatone/go-admin/schema/openapi"
)

// PrincipalHeader carries the caller identity handed to the authorizer.
const PrincipalHeader = "X-Admin-User"

// Handler serves navigation, section views and the OpenAPI schema
// for one Registry.
type Handler struct {
	registry *admin.Registry
	logger   admin.Logger
}

// Option configures the handler.
type Option func(*Handler)

// WithLogger logs failed requests through logger.
func WithLogger(logger admin.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewRouter mounts the admin routes under /admin.
func NewRouter(registry *admin.Registry, opts ...Option) http.Handler {
	h := &Handler{registry: registry, logger: discardLogger{}}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}

	r := chi.NewRouter()
	r.Route("/admin", func(r chi.Router) {
		r.Get("/", h.handleNavigation)
		r.Route("/{model}", func(r chi.Router) {
			r.Use(h.requireModel)
			r.Get("/", h.handleSection(admin.SectionList))
			r.Get("/new", h.handleSection(admin.SectionCreate))
			r.Get("/export", h.handleSection(admin.SectionExport))
			r.Get("/schema", h.handleSchema)
			r.Get("/{id}", h.handleSection(admin.SectionShow))
			r.Get("/{id}/edit", h.handleSection(admin.SectionUpdate))
		})
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})
	return r
}

// SectionResponse wraps a resolved section with the record id of member routes.
type SectionResponse struct {
	ID string `json:"id,omitempty"`
	admin.ResolvedSection
}

func principal(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(PrincipalHeader))
}

// requireModel rejects excluded models and models the principal may not reach.
func (h *Handler) requireModel(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		model := admin.ModelID(chi.URLParam(r, "model"))
		if !h.known(model) || h.registry.IsExcluded(model) {
			writeError(w, r, http.StatusNotFound, "model_not_found", "model "+string(model)+" not found")
			return
		}
		allowed, err := h.registry.Authorize(principal(r), model)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if !allowed {
			writeError(w, r, http.StatusForbidden, "forbidden", "access to "+string(model)+" denied")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) known(model admin.ModelID) bool {
	for _, m := range h.registry.Models() {
		if m == model {
			return true
		}
	}
	return false
}

func (h *Handler) handleNavigation(w http.ResponseWriter, r *http.Request) {
	nav, err := h.registry.Navigation(r.Context(), principal(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, map[string]any{
		"navigation": nav,
		"items":      nav.Items(),
	})
}

func (h *Handler) handleSection(kind admin.SectionKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		model := admin.ModelID(chi.URLParam(r, "model"))
		section, err := h.registry.Lookup(model, kind).Resolved()
		if err != nil {
			h.fail(w, r, err)
			return
		}
		h.respond(w, r, SectionResponse{ID: chi.URLParam(r, "id"), ResolvedSection: section})
	}
}

func (h *Handler) handleSchema(w http.ResponseWriter, r *http.Request) {
	model := admin.ModelID(chi.URLParam(r, "model"))
	doc, err := openapi.ForView(h.registry.Lookup(model, admin.SectionCreate))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, doc)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, v any) {
	if err := writeJSON(w, http.StatusOK, v); err != nil {
		h.logger.Printf("admin http: encode %s %s: %v", r.Method, r.URL.Path, err)
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var evalErr *admin.EvaluationError
	switch {
	case admin.IsNotFound(err):
		writeError(w, r, http.StatusNotFound, "model_not_found", err.Error())
	case errors.As(err, &evalErr):
		h.logger.Printf("admin http: %s %s: %v", r.Method, r.URL.Path, err)
		writeError(w, r, http.StatusUnprocessableEntity, "evaluation_failed", err.Error())
	default:
		h.logger.Printf("admin http: %s %s: %v", r.Method, r.URL.Path, err)
		writeError(w, r, http.StatusInternalServerError, "internal", "internal error")
	}
}

type discardLogger struct{}

func (discardLogger) Printf(string, ...any) {}

package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/sitewatch/internal/domain"
	"github.com/hamed0406/sitewatch/internal/engine"
	apimw "github.com/hamed0406/sitewatch/internal/httpapi/middleware"
)

type Server struct {
	Logger *zap.Logger
	Engine *engine.Engine
}

func NewServer(l *zap.Logger, e *engine.Engine) *Server {
	return &Server{Logger: l, Engine: e}
}

// Router mounts the public (read) and admin (write) API. Empty key sets
// disable the corresponding check; a non-positive rpm disables limiting.
func (s *Server) Router(keys apimw.Keys, origins []string, pubRPM, pubBurst, admRPM, admBurst int) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(apimw.AccessLog(s.Logger))
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(apimw.RateLimit(pubRPM, pubBurst))
			r.Use(apimw.RequireAny(keys))
			r.Get("/targets", s.handleListTargets)
			r.Get("/targets/{id}", s.handleGetTarget)
			r.Get("/targets/{id}/history", s.handleHistory)
			r.Get("/alerts", s.handleAlerts)
			r.Get("/stats", s.handleStats)
			r.Get("/categories", s.handleCategories)
			r.Get("/settings/interval", s.handleGetInterval)
		})
		r.Group(func(r chi.Router) {
			r.Use(apimw.RateLimit(admRPM, admBurst))
			r.Use(apimw.RequireAdmin(keys))
			r.Post("/targets", s.handleAddTarget)
			r.Patch("/targets/{id}", s.handleEditTarget)
			r.Delete("/targets/{id}", s.handleRemoveTarget)
			r.Post("/targets/{id}/pause", s.handleSetPaused(true))
			r.Post("/targets/{id}/resume", s.handleSetPaused(false))
			r.Put("/settings/interval", s.handleSetInterval)
			r.Post("/checks/run", s.handleCheckNow)
		})
	})
	return r
}

// ---- reads ----

func (s *Server) handleListTargets(w http.ResponseWriter, r *http.Request) {
	apimw.WriteJSON(w, http.StatusOK, s.Engine.ListTargets(r.URL.Query().Get("category")))
}

func (s *Server) handleGetTarget(w http.ResponseWriter, r *http.Request) {
	t, err := s.Engine.Get(targetID(r))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	apimw.WriteJSON(w, http.StatusOK, t)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	h, err := s.Engine.RecentHistory(targetID(r))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	apimw.WriteJSON(w, http.StatusOK, h)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	apimw.WriteJSON(w, http.StatusOK, s.Engine.RecentAlerts())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	apimw.WriteJSON(w, http.StatusOK, s.Engine.CurrentStats(r.URL.Query().Get("category")))
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats := s.Engine.Categories()
	if cats == nil {
		cats = []string{}
	}
	apimw.WriteJSON(w, http.StatusOK, cats)
}

type intervalBody struct {
	IntervalSeconds int   `json:"interval_seconds"`
	Allowed         []int `json:"allowed,omitempty"`
}

func (s *Server) handleGetInterval(w http.ResponseWriter, r *http.Request) {
	allowed := make([]int, 0, len(domain.Intervals))
	for _, d := range domain.Intervals {
		allowed = append(allowed, int(d/time.Second))
	}
	apimw.WriteJSON(w, http.StatusOK, intervalBody{
		IntervalSeconds: int(s.Engine.Interval() / time.Second),
		Allowed:         allowed,
	})
}

// ---- writes ----

type addPayload struct {
	URL      string `json:"url"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

func (s *Server) handleAddTarget(w http.ResponseWriter, r *http.Request) {
	var p addPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.URL == "" {
		apimw.WriteError(w, http.StatusBadRequest, "bad payload")
		return
	}
	t, err := s.Engine.Add(r.Context(), p.URL, p.Name, p.Category)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	apimw.WriteJSON(w, http.StatusCreated, t)
}

func (s *Server) handleEditTarget(w http.ResponseWriter, r *http.Request) {
	var p domain.TargetPatch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		apimw.WriteError(w, http.StatusBadRequest, "bad payload")
		return
	}
	t, err := s.Engine.Edit(r.Context(), targetID(r), p)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	apimw.WriteJSON(w, http.StatusOK, t)
}

func (s *Server) handleRemoveTarget(w http.ResponseWriter, r *http.Request) {
	if !s.Engine.Remove(r.Context(), targetID(r)) {
		apimw.WriteError(w, http.StatusNotFound, domain.ErrNotFound.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetPaused(paused bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := s.Engine.SetPaused(r.Context(), targetID(r), paused)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		apimw.WriteJSON(w, http.StatusOK, t)
	}
}

func (s *Server) handleSetInterval(w http.ResponseWriter, r *http.Request) {
	var p intervalBody
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.IntervalSeconds <= 0 {
		apimw.WriteError(w, http.StatusBadRequest, "bad payload")
		return
	}
	if err := s.Engine.SetInterval(r.Context(), time.Duration(p.IntervalSeconds)*time.Second); err != nil {
		s.writeDomainError(w, err)
		return
	}
	apimw.WriteJSON(w, http.StatusOK, intervalBody{IntervalSeconds: p.IntervalSeconds})
}

func (s *Server) handleCheckNow(w http.ResponseWriter, r *http.Request) {
	if !s.Engine.CheckNow() {
		apimw.WriteError(w, http.StatusServiceUnavailable, "scheduler not running")
		return
	}
	apimw.WriteJSON(w, http.StatusAccepted, map[string]bool{"triggered": true})
}

// ---- helpers ----

func targetID(r *http.Request) domain.TargetID {
	return domain.TargetID(chi.URLParam(r, "id"))
}

func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		apimw.WriteError(w, http.StatusNotFound, domain.ErrNotFound.Error())
	case errors.Is(err, domain.ErrInvalidURL), errors.Is(err, domain.ErrInvalidInterval):
		apimw.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		s.Logger.Error("request_error", zap.Error(err))
		apimw.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}

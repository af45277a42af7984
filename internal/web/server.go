package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dhakalaashish/pr-guidebook/internal/github"
	"github.com/dhakalaashish/pr-guidebook/internal/guidebook"
)

// Service is the part of guidebook.Pipeline the HTTP API drives.
type Service interface {
	Prepare(ctx context.Context, ref guidebook.IssueRef) (guidebook.IssueContext, error)
	GettingStarted(ctx context.Context, ref guidebook.IssueRef) (guidebook.Phase, error)
	Implementation(ctx context.Context, ref guidebook.IssueRef, opts guidebook.ImplementationOptions) (guidebook.Phase, error)
	Review(ctx context.Context, ref guidebook.IssueRef, prNumber int) (guidebook.Phase, error)
	Choose(ctx context.Context, ref guidebook.IssueRef, choice guidebook.PRChoice) error
}

type Server struct {
	svc    Service
	hub    *Hub
	logger *slog.Logger
	mux    *http.ServeMux
}

// NewServer wires the API routes. hub may be nil, in which case
// /api/events is not served.
func NewServer(svc Service, hub *Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{svc: svc, hub: hub, logger: logger, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/generate_guidebook", s.generateGuidebook)
	s.mux.HandleFunc("POST /api/getting_started_guide", s.gettingStarted)
	s.mux.HandleFunc("POST /api/implementation_guide", s.implementation)
	s.mux.HandleFunc("POST /api/choose_plan", s.choosePlan)
	s.mux.HandleFunc("POST /api/automate_PR_review", s.review)
	if s.hub != nil {
		s.mux.Handle("GET /api/events", s.hub)
	}
}

func (s *Server) Handler() http.Handler {
	return cors(s.mux)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Info("serving", "addr", addr)
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type generateRequest struct {
	IssueURL string `json:"issueUrl"`
}

type implementationRequest struct {
	guidebook.IssueRef
	SuggestionLevel int    `json:"suggestion_level"`
	PRTitle         string `json:"prTitle"`
	PRDescription   string `json:"prDescription"`
}

type reviewRequest struct {
	guidebook.IssueRef
	PRURL    string `json:"pr_url"`
	PRNumber int    `json:"pr_number"`
}

func (s *Server) generateGuidebook(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !decode(w, r, &req) {
		return
	}
	ref, err := github.ParseIssueURL(req.IssueURL)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := s.svc.Prepare(r.Context(), ref); err != nil {
		s.fail(w, "generate_guidebook", err)
		return
	}
	writeJSON(w, http.StatusOK, ref)
}

func (s *Server) gettingStarted(w http.ResponseWriter, r *http.Request) {
	var ref guidebook.IssueRef
	if !decodeRef(w, r, &ref) {
		return
	}
	out, err := s.svc.GettingStarted(r.Context(), ref)
	if err != nil {
		s.fail(w, "getting_started_guide", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) implementation(w http.ResponseWriter, r *http.Request) {
	var req implementationRequest
	if !decodeRef(w, r, &req) {
		return
	}
	opts := guidebook.ImplementationOptions{Level: guidebook.SuggestionLevel(req.SuggestionLevel)}
	if choice := (guidebook.PRChoice{Title: req.PRTitle, Description: req.PRDescription}); !choice.IsZero() {
		opts.Choice = &choice
	}
	out, err := s.svc.Implementation(r.Context(), req.IssueRef, opts)
	if err != nil {
		s.fail(w, "implementation_guide", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) choosePlan(w http.ResponseWriter, r *http.Request) {
	var req implementationRequest
	if !decodeRef(w, r, &req) {
		return
	}
	choice := guidebook.PRChoice{Title: req.PRTitle, Description: req.PRDescription}
	if choice.IsZero() {
		writeError(w, http.StatusBadRequest, "prTitle or prDescription is required")
		return
	}
	if err := s.svc.Choose(r.Context(), req.IssueRef, choice); err != nil {
		s.fail(w, "choose_plan", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func (s *Server) review(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if !decodeRef(w, r, &req) {
		return
	}
	number := req.PRNumber
	if req.PRURL != "" {
		n, err := github.PRNumberFor(req.IssueRef, req.PRURL)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		number = n
	}
	if number <= 0 {
		writeError(w, http.StatusBadRequest, "pr_url is required")
		return
	}
	out, err := s.svc.Review(r.Context(), req.IssueRef, number)
	if err != nil {
		s.fail(w, "automate_PR_review", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) fail(w http.ResponseWriter, route string, err error) {
	if errors.Is(err, guidebook.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.logger.Error("request failed", "route", route, "error", err)
	writeError(w, http.StatusInternalServerError, err.Error())
}

type refHolder interface {
	Validate() error
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func decodeRef(w http.ResponseWriter, r *http.Request, v refHolder) bool {
	if !decode(w, r, v) {
		return false
	}
	if err := v.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

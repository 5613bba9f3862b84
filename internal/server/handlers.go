package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/YangQing-Lin/hooky-cli/internal/contextmenu"
	"github.com/YangQing-Lin/hooky-cli/internal/pagecontext"
	"github.com/YangQing-Lin/hooky-cli/internal/quicksend"
	"github.com/YangQing-Lin/hooky-cli/internal/store"
	"github.com/YangQing-Lin/hooky-cli/internal/surface"
	"github.com/YangQing-Lin/hooky-cli/internal/webhook"
)

// maxBodyBytes caps request payloads.
const maxBodyBytes = 1 << 20

// ExecuteRequest sends one config with an explicit variable context.
type ExecuteRequest struct {
	Config  webhook.Config `json:"config" validate:"required"`
	Context map[string]any `json:"context"`
}

// TabRequest identifies the page a trigger came from. Page, when present,
// overrides what the extractor would read.
type TabRequest struct {
	Tab  *pagecontext.Tab  `json:"tab"`
	Page *pagecontext.Page `json:"page,omitempty"`
}

// QuickSendResponse is the outcome plus what the caller should show.
type QuickSendResponse struct {
	quicksend.Outcome
	OpenManualUI bool `json:"openManualUI"`
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request payload: %w", err)
	}
	return nil
}

// decodeOptional treats an empty body as the zero value.
func decodeOptional(w http.ResponseWriter, r *http.Request, v any) error {
	if r.ContentLength == 0 {
		return nil
	}
	err := decode(w, r, v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (s *Server) execute(w http.ResponseWriter, r *http.Request) {
	var req ExecuteRequest
	if err := decode(w, r, &req); err != nil {
		s.log.Warn("execute: bad payload", zap.Error(err))
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := store.ValidateStruct(req); err != nil {
		s.log.Warn("execute: validation failed", zap.Error(err))
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result := s.dispatcher.Dispatch(r.Context(), req.Config, req.Context)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) quickSend(w http.ResponseWriter, r *http.Request) {
	var req TabRequest
	if err := decodeOptional(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	rec := &surface.Recorder{}
	opts := []quicksend.Option{quicksend.WithLogger(s.log)}
	if s.metrics != nil {
		opts = append(opts, quicksend.WithOutcomeHook(s.metrics.ObserveOutcome))
	}
	resolver := quicksend.New(s.manager, s.pageProvider(req.Page), s.dispatcher, rec, opts...)

	out := resolver.Run(r.Context(), req.Tab)
	writeJSON(w, http.StatusOK, QuickSendResponse{Outcome: out, OpenManualUI: rec.ManualUIRequested()})
}

func (s *Server) listMenu(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.menu.Items())
}

func (s *Server) clickMenu(w http.ResponseWriter, r *http.Request) {
	var req TabRequest
	if err := decodeOptional(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	h := contextmenu.NewHandler(s.manager, s.pageProvider(req.Page), s.dispatcher, s.log)
	click, err := h.HandleClick(r.Context(), chi.URLParam(r, "itemID"), req.Tab, nil)
	if err != nil {
		s.log.Error("menu click failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, click)
}

package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"docflow/internal/actor"
	"docflow/internal/api"
	"docflow/internal/config"
	"docflow/internal/stage"
	"docflow/internal/workflow"
)

type apiServer struct {
	bind      string
	token     string
	opTimeout time.Duration
	logger    *slog.Logger
	daemon    *Daemon
	svc       *api.WorkflowService

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:      strings.TrimSpace(cfg.Paths.APIBind),
		token:     cfg.Paths.APIToken,
		opTimeout: time.Duration(cfg.Engine.OperationTimeout) * time.Second,
		logger:    logger,
		daemon:    d,
		svc:       api.NewWorkflowService(d.engine),
	}
	srv.server = &http.Server{
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/api/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(bearerAuth(s.token))
		r.Get("/api/stages", s.handleStages)
		r.Post("/api/workflows", s.handleStart)
		r.Get("/api/workflows/{documentID}", s.handleStatus)
		r.Route("/api/instances/{instanceID}", func(r chi.Router) {
			r.Get("/history", s.handleHistory)
			r.Get("/permissions", s.handlePermissions)
			r.Get("/feedback/{stage}", s.handleFeedback)
			r.Post("/advance", s.handleAdvance)
			r.Post("/backward", s.handleBackward)
			r.Post("/jump", s.handleJump)
			r.Post("/reset", s.handleReset)
			r.Post("/feedback", s.handleSubmitFeedback)
		})
	})
	return r
}

func (s *apiServer) start(ctx context.Context) error {
	if s.bind == "" {
		return errors.New("api bind address not configured")
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", slog.String("error", err.Error()))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", slog.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// opCtx bounds each engine call independently of the client connection
// staying open.
func (s *apiServer) opCtx(r *http.Request) (context.Context, context.CancelFunc) {
	if s.opTimeout <= 0 {
		return r.Context(), func() {}
	}
	return context.WithTimeout(r.Context(), s.opTimeout)
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	code := http.StatusOK
	if status.Health.Error != "" || !status.Health.IntegrityCheck {
		code = http.StatusServiceUnavailable
	}
	s.writeJSON(w, code, map[string]any{
		"running":      status.Running,
		"databasePath": status.DatabasePath,
		"instances":    status.Health.Instances,
		"auditEntries": status.Health.AuditEntries,
		"integrity":    status.Health.IntegrityCheck,
		"error":        status.Health.Error,
	})
}

func (s *apiServer) handleStages(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, api.StagesResponse{Stages: api.StageCatalog()})
}

func (s *apiServer) handleStart(w http.ResponseWriter, r *http.Request) {
	act, ok := s.requestActor(w, r)
	if !ok {
		return
	}
	var req api.StartRequest
	if !s.decode(w, r, &req) {
		return
	}
	ctx, cancel := s.opCtx(r)
	defer cancel()
	result, err := s.daemon.engine.Start(ctx, req.DocumentID, act)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.TransitionResult{
		Instance: api.FromInstance(result.Instance),
		Entry:    api.FromAuditEntry(result.Entry),
	})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.opCtx(r)
	defer cancel()
	view, err := s.svc.Status(ctx, chi.URLParam(r, "documentID"))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	if view == nil {
		s.writeError(w, http.StatusNotFound, "document has no workflow")
		return
	}
	s.writeJSON(w, http.StatusOK, api.InstanceResponse{Instance: *view})
}

func (s *apiServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	instanceID := chi.URLParam(r, "instanceID")
	ctx, cancel := s.opCtx(r)
	defer cancel()
	entries, err := s.svc.History(ctx, instanceID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.HistoryResponse{InstanceID: instanceID, Entries: entries})
}

func (s *apiServer) handlePermissions(w http.ResponseWriter, r *http.Request) {
	act, ok := s.requestActor(w, r)
	if !ok {
		return
	}
	ctx, cancel := s.opCtx(r)
	defer cancel()
	view, err := s.svc.Permissions(ctx, chi.URLParam(r, "instanceID"), act.Role)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *apiServer) handleFeedback(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.opCtx(r)
	defer cancel()
	view, err := s.svc.Feedback(ctx, chi.URLParam(r, "instanceID"), chi.URLParam(r, "stage"))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	if view == nil {
		s.writeError(w, http.StatusNotFound, "no feedback for stage")
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *apiServer) handleAdvance(w http.ResponseWriter, r *http.Request) {
	act, ok := s.requestActor(w, r)
	if !ok {
		return
	}
	var req api.AdvanceRequest
	if !s.decode(w, r, &req) {
		return
	}
	ctx, cancel := s.opCtx(r)
	defer cancel()
	result, err := s.daemon.engine.Advance(ctx, chi.URLParam(r, "instanceID"), act, transitionData(req.Notes, req.Feedback))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeTransition(w, result)
}

func (s *apiServer) handleBackward(w http.ResponseWriter, r *http.Request) {
	act, ok := s.requestActor(w, r)
	if !ok {
		return
	}
	var req api.BackwardRequest
	if !s.decode(w, r, &req) {
		return
	}
	ctx, cancel := s.opCtx(r)
	defer cancel()
	result, err := s.daemon.engine.MoveBackward(ctx, chi.URLParam(r, "instanceID"), act, req.TargetStage, req.Reason, nil)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeTransition(w, result)
}

func (s *apiServer) handleJump(w http.ResponseWriter, r *http.Request) {
	act, ok := s.requestActor(w, r)
	if !ok {
		return
	}
	var req api.JumpRequest
	if !s.decode(w, r, &req) {
		return
	}
	ctx, cancel := s.opCtx(r)
	defer cancel()
	result, err := s.daemon.engine.AdminJump(ctx, chi.URLParam(r, "instanceID"), act, req.TargetStage, req.Reason)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeTransition(w, result)
}

func (s *apiServer) handleReset(w http.ResponseWriter, r *http.Request) {
	act, ok := s.requestActor(w, r)
	if !ok {
		return
	}
	var req api.ResetRequest
	if !s.decode(w, r, &req) {
		return
	}
	ctx, cancel := s.opCtx(r)
	defer cancel()
	result, err := s.daemon.engine.Reset(ctx, chi.URLParam(r, "instanceID"), act, req.Confirmation)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeTransition(w, result)
}

func (s *apiServer) handleSubmitFeedback(w http.ResponseWriter, r *http.Request) {
	act, ok := s.requestActor(w, r)
	if !ok {
		return
	}
	var req api.FeedbackRequest
	if !s.decode(w, r, &req) {
		return
	}
	ctx, cancel := s.opCtx(r)
	defer cancel()
	record, err := s.daemon.engine.SubmitFeedback(ctx, chi.URLParam(r, "instanceID"), act, req.Stage, req.Content, req.Comments)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.FromFeedback(record))
}

// requestActor normalizes the caller's role and identity headers. Role
// aliases fold to canonical values here, once, so everything downstream
// compares exact roles.
func (s *apiServer) requestActor(w http.ResponseWriter, r *http.Request) (workflow.Actor, bool) {
	raw := r.Header.Get("X-Actor-Role")
	role, ok := actor.Parse(raw)
	if !ok {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown actor role %q", raw))
		return workflow.Actor{}, false
	}
	return workflow.Actor{
		Role:     role,
		Identity: strings.TrimSpace(r.Header.Get("X-Actor")),
	}, true
}

func (s *apiServer) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "read request body")
		return false
	}
	if len(body) == 0 {
		return true
	}
	if err := json.Unmarshal(body, target); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func transitionData(notes string, feedback *api.FeedbackRequest) *workflow.TransitionData {
	if notes == "" && feedback == nil {
		return nil
	}
	data := &workflow.TransitionData{Notes: notes}
	if feedback != nil {
		data.Feedback = &workflow.FeedbackPayload{
			Stage:    feedback.Stage,
			Content:  feedback.Content,
			Comments: feedback.Comments,
		}
	}
	return data
}

func (s *apiServer) writeTransition(w http.ResponseWriter, result workflow.Result) {
	s.writeJSON(w, http.StatusOK, api.TransitionResult{
		Instance: api.FromInstance(result.Instance),
		Entry:    api.FromAuditEntry(result.Entry),
	})
}

// writeEngineError maps the engine's error taxonomy onto HTTP statuses.
func (s *apiServer) writeEngineError(w http.ResponseWriter, err error) {
	var code int
	switch {
	case errors.Is(err, workflow.ErrUnauthorized):
		code = http.StatusForbidden
	case errors.Is(err, workflow.ErrInstanceNotFound), errors.Is(err, stage.ErrUnknown):
		code = http.StatusNotFound
	case errors.Is(err, workflow.ErrInvalidTarget):
		code = http.StatusBadRequest
	case errors.Is(err, workflow.ErrConcurrentModification),
		errors.Is(err, workflow.ErrActiveInstanceExists),
		errors.Is(err, workflow.ErrNotStarted):
		code = http.StatusConflict
	default:
		code = http.StatusInternalServerError
	}
	s.writeError(w, code, err.Error())
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

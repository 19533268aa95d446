package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"veristage/internal/kyc/schema"
	"veristage/internal/kyc/service"
	"veristage/internal/kyc/workflow"
	"veristage/internal/platform/metrics"
	"veristage/internal/platform/middleware"
	"veristage/internal/transport/http/shared"
	"veristage/pkg/domain"
	dErrors "veristage/pkg/domain-errors"
)

// AdminHandler handles the back-office assisted-onboarding endpoints. Every
// route targets an explicit applicant and requires admin credentials.
type AdminHandler struct {
	logger       *slog.Logger
	workflows    *service.Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
	adminKeyHash string
}

// NewAdmin creates a new AdminHandler.
func NewAdmin(
	workflows *service.Service,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	jwtValidator middleware.JWTValidator,
	adminKeyHash string) *AdminHandler {
	return &AdminHandler{
		logger:       logger,
		workflows:    workflows,
		metrics:      metrics,
		jwtValidator: jwtValidator,
		adminKeyHash: adminKeyHash,
	}
}

// Register registers the admin routes with the chi router.
func (h *AdminHandler) Register(r chi.Router) {
	adminRouter := chi.NewRouter()
	adminRouter.Use(middleware.Recovery(h.logger))
	adminRouter.Use(middleware.RequestID)
	adminRouter.Use(middleware.Logger(h.logger))
	adminRouter.Use(middleware.Timeout(60 * time.Second))
	adminRouter.Use(middleware.Device)
	adminRouter.Use(middleware.Latency(h.metrics))
	adminRouter.Use(middleware.RequireAdmin(h.jwtValidator, h.adminKeyHash, h.logger))

	adminRouter.Route("/kyc/{applicantID}", func(ar chi.Router) {
		ar.Group(func(jr chi.Router) {
			jr.Use(middleware.ContentTypeJSON)
			jr.Get("/workflow", h.handleGetWorkflow)
			jr.Put("/fields/{key}", h.handleSetField)
			jr.Post("/advance", h.handleAdvance)
			jr.Post("/retreat", h.handleRetreat)
			jr.Post("/jump", h.handleJump)
			jr.Post("/save", h.handleSave)
			jr.Post("/complete", h.handleComplete)
			jr.Delete("/session", h.handleDiscard)
		})
		ar.Post("/documents/{slot}", h.handleUpload)
		ar.Delete("/documents/{slot}", h.handleClearUpload)
	})

	r.Mount("/admin", adminRouter)
}

// session opens (or resumes) an assisted workflow for the applicant named in
// the URL. The operator's identity comes from the admin token when present.
func (h *AdminHandler) session(w http.ResponseWriter, r *http.Request) (*workflow.Controller, bool) {
	ctx := r.Context()

	applicantID, err := domain.ParseApplicantID(chi.URLParam(r, "applicantID"))
	if err != nil {
		shared.WriteError(w, err)
		return nil, false
	}

	accountType := domain.AccountIndividual
	if v := r.URL.Query().Get("account_type"); v != "" {
		accountType, err = domain.ParseAccountType(v)
		if err != nil {
			shared.WriteError(w, err)
			return nil, false
		}
	}

	actorID := "admin"
	if claims := middleware.GetClaims(ctx); claims != nil && claims.Subject != "" {
		actorID = claims.Subject
	}

	ctrl, err := h.workflows.OpenAdminAssisted(ctx, applicantID, accountType, actorID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to open assisted workflow",
			"request_id", middleware.GetRequestID(ctx),
			"applicant_id", applicantID,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return nil, false
	}
	return ctrl, true
}

func (h *AdminHandler) handleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.session(w, r)
	if !ok {
		return
	}
	shared.WriteJSON(w, http.StatusOK, toWorkflowResponse(ctrl))
}

func (h *AdminHandler) handleSetField(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ctrl, ok := h.session(w, r)
	if !ok {
		return
	}

	key := schema.FieldKey(chi.URLParam(r, "key"))
	var req setFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := h.workflows.SetField(ctx, ctrl.ApplicantID(), key, req.Value); err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toWorkflowResponse(ctrl))
}

func (h *AdminHandler) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.session(w, r)
	if !ok {
		return
	}
	uploadDocument(w, r, h.logger, h.workflows, ctrl)
}

func (h *AdminHandler) handleClearUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ctrl, ok := h.session(w, r)
	if !ok {
		return
	}

	slot, valid := schema.ParseSlot(chi.URLParam(r, "slot"))
	if !valid {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "unknown document slot"))
		return
	}
	if err := h.workflows.ClearUpload(ctx, ctrl.ApplicantID(), slot); err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toWorkflowResponse(ctrl))
}

func (h *AdminHandler) handleAdvance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ctrl, ok := h.session(w, r)
	if !ok {
		return
	}

	if _, err := h.workflows.Advance(ctx, ctrl.ApplicantID()); err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toWorkflowResponse(ctrl))
}

func (h *AdminHandler) handleRetreat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ctrl, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := h.workflows.Retreat(ctx, ctrl.ApplicantID()); err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toWorkflowResponse(ctrl))
}

type jumpRequest struct {
	Stage int `json:"stage"`
}

func (h *AdminHandler) handleJump(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ctrl, ok := h.session(w, r)
	if !ok {
		return
	}

	var req jumpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := h.workflows.JumpTo(ctx, ctrl.ApplicantID(), schema.StageID(req.Stage)); err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toWorkflowResponse(ctrl))
}

func (h *AdminHandler) handleSave(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ctrl, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := h.workflows.Save(ctx, ctrl.ApplicantID()); err != nil {
		h.logger.ErrorContext(ctx, "manual save failed",
			"request_id", middleware.GetRequestID(ctx),
			"applicant_id", ctrl.ApplicantID(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toWorkflowResponse(ctrl))
}

func (h *AdminHandler) handleComplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ctrl, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := h.workflows.Complete(ctx, ctrl.ApplicantID()); err != nil {
		h.logger.ErrorContext(ctx, "force complete failed",
			"request_id", middleware.GetRequestID(ctx),
			"applicant_id", ctrl.ApplicantID(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toWorkflowResponse(ctrl))
}

func (h *AdminHandler) handleDiscard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	applicantID, err := domain.ParseApplicantID(chi.URLParam(r, "applicantID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.workflows.Discard(ctx, applicantID); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Package handler exposes the onboarding workflow over HTTP: a self-service
// surface for authenticated applicants and an admin surface for assisted
// onboarding.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"veristage/internal/kyc/draft"
	"veristage/internal/kyc/schema"
	"veristage/internal/kyc/service"
	"veristage/internal/kyc/workflow"
	"veristage/internal/platform/metrics"
	"veristage/internal/platform/middleware"
	"veristage/internal/transport/http/shared"
	"veristage/pkg/domain"
	dErrors "veristage/pkg/domain-errors"
)

// Uploads above this size are rejected before reaching the document service.
const maxUploadBytes = 20 << 20

// Handler handles the applicant-facing workflow endpoints.
type Handler struct {
	logger       *slog.Logger
	workflows    *service.Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

// New creates a new workflow Handler.
func New(
	workflows *service.Service,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		workflows:    workflows,
		metrics:      metrics,
		jwtValidator: jwtValidator,
	}
}

// Register registers the self-service routes with the chi router. The
// document upload route takes multipart bodies and therefore mounts outside
// the JSON content-type guard.
func (h *Handler) Register(r chi.Router) {
	kycRouter := chi.NewRouter()
	kycRouter.Use(middleware.Recovery(h.logger))
	kycRouter.Use(middleware.RequestID)
	kycRouter.Use(middleware.Logger(h.logger))
	kycRouter.Use(middleware.Timeout(60 * time.Second))
	kycRouter.Use(middleware.Device)
	kycRouter.Use(middleware.Latency(h.metrics))
	kycRouter.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

	kycRouter.Group(func(jr chi.Router) {
		jr.Use(middleware.ContentTypeJSON)
		jr.Get("/workflow", h.handleGetWorkflow)
		jr.Put("/fields/{key}", h.handleSetField)
		jr.Post("/advance", h.handleAdvance)
		jr.Post("/retreat", h.handleRetreat)
		jr.Post("/submit", h.handleSubmit)
	})
	kycRouter.Post("/documents/{slot}", h.handleUpload)
	kycRouter.Delete("/documents/{slot}", h.handleClearUpload)

	r.Mount("/kyc", kycRouter)
}

// session opens (or resumes) the caller's own workflow from the token claims.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*workflow.Controller, bool) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	claims := middleware.GetClaims(ctx)
	if claims == nil {
		// This should never happen if RequireAuth middleware is configured correctly
		h.logger.ErrorContext(ctx, "claims missing from context despite auth middleware",
			"request_id", requestID,
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return nil, false
	}

	applicantID, err := domain.ParseApplicantID(claims.ApplicantID)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "token carries no valid applicant"))
		return nil, false
	}
	accountType, err := domain.ParseAccountType(claims.AccountType)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "token carries no valid account type"))
		return nil, false
	}

	ctrl, err := h.workflows.OpenSelfService(ctx, applicantID, accountType, draft.Seed{
		FirstName: claims.FirstName,
		LastName:  claims.LastName,
		Phone:     claims.Phone,
		Email:     claims.Email,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to open workflow",
			"request_id", requestID,
			"applicant_id", applicantID,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return nil, false
	}
	return ctrl, true
}

func (h *Handler) handleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.session(w, r)
	if !ok {
		return
	}
	shared.WriteJSON(w, http.StatusOK, toWorkflowResponse(ctrl))
}

// setFieldRequest carries one field mutation. Value is string or bool
// depending on the field.
type setFieldRequest struct {
	Value any `json:"value"`
}

func (h *Handler) handleSetField(w http.ResponseWriter, r *http.Request) {
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
		h.logger.WarnContext(ctx, "field mutation rejected",
			"request_id", middleware.GetRequestID(ctx),
			"applicant_id", ctrl.ApplicantID(),
			"field", key,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toWorkflowResponse(ctrl))
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.session(w, r)
	if !ok {
		return
	}
	uploadDocument(w, r, h.logger, h.workflows, ctrl)
}

func (h *Handler) handleClearUpload(w http.ResponseWriter, r *http.Request) {
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

func (h *Handler) handleAdvance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ctrl, ok := h.session(w, r)
	if !ok {
		return
	}

	if _, err := h.workflows.Advance(ctx, ctrl.ApplicantID()); err != nil {
		if !dErrors.Is(err, dErrors.CodeValidationIncomplete) {
			h.logger.WarnContext(ctx, "advance failed",
				"request_id", middleware.GetRequestID(ctx),
				"applicant_id", ctrl.ApplicantID(),
				"stage", ctrl.CurrentStage(),
				"error", err.Error(),
			)
		}
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toWorkflowResponse(ctrl))
}

func (h *Handler) handleRetreat(w http.ResponseWriter, r *http.Request) {
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

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ctrl, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := h.workflows.Submit(ctx, ctrl.ApplicantID()); err != nil {
		if !dErrors.Is(err, dErrors.CodeValidationIncomplete) {
			h.logger.ErrorContext(ctx, "submit failed",
				"request_id", middleware.GetRequestID(ctx),
				"applicant_id", ctrl.ApplicantID(),
				"error", err.Error(),
			)
		}
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toWorkflowResponse(ctrl))
}

// uploadDocument parses a multipart body and routes the file to the slot.
// Shared by the self-service and admin surfaces.
func uploadDocument(w http.ResponseWriter, r *http.Request, logger *slog.Logger, workflows *service.Service, ctrl *workflow.Controller) {
	ctx := r.Context()

	slot, valid := schema.ParseSlot(chi.URLParam(r, "slot"))
	if !valid {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "unknown document slot"))
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid multipart body"))
		return
	}
	file, header, err := r.FormFile("document")
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "multipart body is missing a document part"))
		return
	}
	defer file.Close()

	if err := workflows.BeginUpload(ctx, ctrl.ApplicantID(), slot, header.Filename, file); err != nil {
		logger.WarnContext(ctx, "document upload failed",
			"request_id", middleware.GetRequestID(ctx),
			"applicant_id", ctrl.ApplicantID(),
			"slot", slot,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toWorkflowResponse(ctrl))
}

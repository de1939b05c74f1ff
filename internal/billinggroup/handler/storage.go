// Package handler exposes billing groups over HTTP: the storage collaborator
// API, the policy directory API and the editor API.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"policydesk/internal/billinggroup/models"
	"policydesk/internal/billinggroup/ports"
	id "policydesk/pkg/domain"
	"policydesk/pkg/platform/httputil"
	"policydesk/pkg/requestcontext"
)

// StorageHandler serves the flat billing group table in its wire format.
type StorageHandler struct {
	backend ports.GroupBackend
	logger  *slog.Logger
}

func NewStorage(backend ports.GroupBackend, logger *slog.Logger) *StorageHandler {
	return &StorageHandler{backend: backend, logger: logger}
}

func (h *StorageHandler) Register(r chi.Router) {
	r.Get("/policies/{policyID}/billing-groups", h.HandleList)
	r.Post("/policies/{policyID}/billing-groups", h.HandleReplace)
}

// HandleList handles GET /policies/{policyID}/billing-groups.
func (h *StorageHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	policyID, err := id.ParsePolicyID(chi.URLParam(r, "policyID"))
	if err != nil {
		writeError(w, err)
		return
	}
	members, err := h.backend.ListBillingGroups(ctx, policyID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list billing groups",
			"request_id", requestcontext.RequestID(ctx),
			"policy_id", policyID.String(),
			"error", err,
		)
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.EncodeMembers(policyID, members))
}

// HandleReplace handles POST /policies/{policyID}/billing-groups. The body is
// the complete new set for the policy.
func (h *StorageHandler) HandleReplace(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	policyID, err := id.ParsePolicyID(chi.URLParam(r, "policyID"))
	if err != nil {
		writeError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ReplaceRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := h.backend.ReplaceBillingGroups(ctx, policyID, req.parsed); err != nil {
		h.logger.WarnContext(ctx, "billing group replacement rejected",
			"request_id", requestID,
			"policy_id", policyID.String(),
			"error", err,
		)
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"policydesk/internal/billinggroup/models"
	"policydesk/internal/billinggroup/ports"
	id "policydesk/pkg/domain"
	"policydesk/pkg/platform/httputil"
)

// DirectoryHandler serves policy parties and contacts.
type DirectoryHandler struct {
	policies ports.PolicyDirectory
	contacts ports.ContactDirectory
	logger   *slog.Logger
}

func NewDirectory(policies ports.PolicyDirectory, contacts ports.ContactDirectory, logger *slog.Logger) *DirectoryHandler {
	return &DirectoryHandler{policies: policies, contacts: contacts, logger: logger}
}

func (h *DirectoryHandler) Register(r chi.Router) {
	r.Get("/policies/{policyID}", h.HandleGetPolicy)
	r.Get("/policies/{policyID}/sub-policyholders", h.HandleListSubPolicyholders)
	r.Get("/policies/{policyID}/contacts", h.HandleListPolicyContacts)
	r.Get("/sub-policyholders/{subID}/contacts", h.HandleListSubPolicyholderContacts)
}

func (h *DirectoryHandler) HandleGetPolicy(w http.ResponseWriter, r *http.Request) {
	policyID, err := id.ParsePolicyID(chi.URLParam(r, "policyID"))
	if err != nil {
		writeError(w, err)
		return
	}
	policy, err := h.policies.GetPolicy(r.Context(), policyID)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, policy)
}

func (h *DirectoryHandler) HandleListSubPolicyholders(w http.ResponseWriter, r *http.Request) {
	policyID, err := id.ParsePolicyID(chi.URLParam(r, "policyID"))
	if err != nil {
		writeError(w, err)
		return
	}
	subs, err := h.policies.ListSubPolicyholders(r.Context(), policyID)
	if err != nil {
		writeError(w, err)
		return
	}
	if subs == nil {
		subs = []models.SubPolicyholder{}
	}
	httputil.WriteJSON(w, http.StatusOK, SubPolicyholdersResponse{SubPolicyholders: subs})
}

func (h *DirectoryHandler) HandleListPolicyContacts(w http.ResponseWriter, r *http.Request) {
	policyID, err := id.ParsePolicyID(chi.URLParam(r, "policyID"))
	if err != nil {
		writeError(w, err)
		return
	}
	contacts, err := h.contacts.ListPolicyContacts(r.Context(), policyID)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ContactsResponse{Contacts: nonNilContacts(contacts)})
}

func (h *DirectoryHandler) HandleListSubPolicyholderContacts(w http.ResponseWriter, r *http.Request) {
	subID, err := id.ParseSubPolicyholderID(chi.URLParam(r, "subID"))
	if err != nil {
		writeError(w, err)
		return
	}
	contacts, err := h.contacts.ListSubPolicyholderContacts(r.Context(), subID)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ContactsResponse{Contacts: nonNilContacts(contacts)})
}

func nonNilContacts(c []models.Contact) []models.Contact {
	if c == nil {
		return []models.Contact{}
	}
	return c
}

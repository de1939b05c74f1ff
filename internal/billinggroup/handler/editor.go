package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"policydesk/internal/billinggroup/mailing"
	"policydesk/internal/billinggroup/models"
	"policydesk/internal/billinggroup/service"
	id "policydesk/pkg/domain"
	dErrors "policydesk/pkg/domain-errors"
	"policydesk/pkg/platform/httputil"
	"policydesk/pkg/requestcontext"
)

// EditorService is the editing session API.
type EditorService interface {
	Open(ctx context.Context, policyID id.PolicyID) (*service.View, error)
	Members(ctx context.Context, policyID id.PolicyID) (*models.MemberOptions, error)
	ApplyEdit(ctx context.Context, policyID id.PolicyID, intent models.EditIntent) (*service.View, error)
	RemoveMember(ctx context.Context, policyID id.PolicyID, rowID id.MemberID) (*service.View, error)
	ToggleLeader(ctx context.Context, policyID id.PolicyID, rowID id.MemberID) (*service.View, error)
	DeleteGroup(ctx context.Context, policyID id.PolicyID, groupName string) (*service.View, error)
	LoadEmails(ctx context.Context, policyID id.PolicyID, req mailing.Request) (*mailing.Result, error)
	Sync(ctx context.Context, policyID id.PolicyID) (*service.View, error)
	Close(ctx context.Context, policyID id.PolicyID) error
}

var _ EditorService = (*service.Editor)(nil)

// EditorHandler exposes editing sessions.
type EditorHandler struct {
	editor EditorService
	logger *slog.Logger
}

func NewEditor(editor EditorService, logger *slog.Logger) *EditorHandler {
	return &EditorHandler{editor: editor, logger: logger}
}

// Register mounts the editor routes. Callers put them behind the admin token.
func (h *EditorHandler) Register(r chi.Router) {
	r.Route("/editor/policies/{policyID}", func(r chi.Router) {
		r.Get("/members", h.HandleMembers)
		r.Route("/billing-groups", func(r chi.Router) {
			r.Get("/", h.HandleView)
			r.Delete("/", h.HandleClose)
			r.Post("/edit", h.HandleEdit)
			r.Delete("/rows/{rowID}", h.HandleRemoveMember)
			r.Post("/rows/{rowID}/leader", h.HandleToggleLeader)
			r.Delete("/groups/{groupName}", h.HandleDeleteGroup)
			r.Post("/emails", h.HandleLoadEmails)
			r.Post("/sync", h.HandleSync)
		})
	})
}

func (h *EditorHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	policyID, ok := h.policyID(w, r)
	if !ok {
		return
	}
	view, err := h.editor.Open(r.Context(), policyID)
	h.respond(w, r, "open", policyID, view, err)
}

func (h *EditorHandler) HandleMembers(w http.ResponseWriter, r *http.Request) {
	policyID, ok := h.policyID(w, r)
	if !ok {
		return
	}
	opts, err := h.editor.Members(r.Context(), policyID)
	if err != nil {
		h.fail(w, r, "members", policyID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, opts)
}

func (h *EditorHandler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	policyID, ok := h.policyID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[EditRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	view, err := h.editor.ApplyEdit(ctx, policyID, req.EditIntent)
	h.respond(w, r, service.OpApplyEdit, policyID, view, err)
}

func (h *EditorHandler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	policyID, ok := h.policyID(w, r)
	if !ok {
		return
	}
	rowID, err := id.ParseMemberID(chi.URLParam(r, "rowID"))
	if err != nil {
		writeError(w, err)
		return
	}
	view, err := h.editor.RemoveMember(r.Context(), policyID, rowID)
	h.respond(w, r, service.OpRemoveMember, policyID, view, err)
}

func (h *EditorHandler) HandleToggleLeader(w http.ResponseWriter, r *http.Request) {
	policyID, ok := h.policyID(w, r)
	if !ok {
		return
	}
	rowID, err := id.ParseMemberID(chi.URLParam(r, "rowID"))
	if err != nil {
		writeError(w, err)
		return
	}
	view, err := h.editor.ToggleLeader(r.Context(), policyID, rowID)
	h.respond(w, r, service.OpToggleLeader, policyID, view, err)
}

func (h *EditorHandler) HandleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	policyID, ok := h.policyID(w, r)
	if !ok {
		return
	}
	groupName, err := url.PathUnescape(chi.URLParam(r, "groupName"))
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid group name"))
		return
	}
	view, err := h.editor.DeleteGroup(r.Context(), policyID, groupName)
	h.respond(w, r, service.OpDeleteGroup, policyID, view, err)
}

// HandleLoadEmails answers 200 with the merged list even when no contact had a
// usable email; the notice tells the caller nothing was found.
func (h *EditorHandler) HandleLoadEmails(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	policyID, ok := h.policyID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[EmailsRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	result, err := h.editor.LoadEmails(ctx, policyID, req.Request)
	if err != nil && !(errors.Is(err, mailing.ErrNoEmailsFound) && result != nil) {
		h.fail(w, r, "load_emails", policyID, err)
		return
	}
	resp := EmailsResponse{Result: result, Partial: result.Partial()}
	if err != nil {
		resp.Notice = noticeNoEmails
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleSync persists pending edits now. A failed persist is reported with
// the error status; the view is not returned in that case.
func (h *EditorHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	policyID, ok := h.policyID(w, r)
	if !ok {
		return
	}
	view, err := h.editor.Sync(r.Context(), policyID)
	h.respond(w, r, "sync", policyID, view, err)
}

// HandleClose persists pending edits and closes the working copy. The next
// read reopens it from storage.
func (h *EditorHandler) HandleClose(w http.ResponseWriter, r *http.Request) {
	policyID, ok := h.policyID(w, r)
	if !ok {
		return
	}
	if err := h.editor.Close(r.Context(), policyID); err != nil {
		h.fail(w, r, "close", policyID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *EditorHandler) policyID(w http.ResponseWriter, r *http.Request) (id.PolicyID, bool) {
	policyID, err := id.ParsePolicyID(chi.URLParam(r, "policyID"))
	if err != nil {
		writeError(w, err)
		return id.PolicyID{}, false
	}
	return policyID, true
}

func (h *EditorHandler) respond(w http.ResponseWriter, r *http.Request, op string, policyID id.PolicyID, view *service.View, err error) {
	if err != nil {
		h.fail(w, r, op, policyID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *EditorHandler) fail(w http.ResponseWriter, r *http.Request, op string, policyID id.PolicyID, err error) {
	ctx := r.Context()
	level := slog.LevelWarn
	if code, _ := dErrors.Coded(err); code == "" || code == dErrors.CodeInternal {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, "editor request failed",
		"operation", op,
		"request_id", requestcontext.RequestID(ctx),
		"policy_id", policyID.String(),
		"error", err,
	)
	writeError(w, err)
}

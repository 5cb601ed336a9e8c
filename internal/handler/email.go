package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/mailmerge/internal/middleware"
	"github.com/mailmerge/internal/model"
)

type invocationRecorder interface {
	Record(ctx context.Context, inv model.Invocation) error
}

// EmailHandler resolves email templates.
type EmailHandler struct {
	BaseHandler
	invocations invocationRecorder
}

// NewEmailHandler creates an EmailHandler. invocations may be nil to disable
// the invocation log.
func NewEmailHandler(base BaseHandler, invocations invocationRecorder) *EmailHandler {
	return &EmailHandler{BaseHandler: base, invocations: invocations}
}

// Setup decodes an EmailRequest, resolves its tags and responds with the
// resulting EmailResponse.
func (h *EmailHandler) Setup(w http.ResponseWriter, r *http.Request) {
	h.Logger.Info("processing email template")

	var req model.EmailRequest
	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	h.Logger.Info("setting recipient tokens", "count", len(req.RecipientTokens))
	h.Logger.Info("replacing tokens in email template", "count", len(req.Tokens))

	start := time.Now()
	msg := req.Resolve()
	elapsed := time.Since(start)

	unresolved := msg.Unresolved()
	h.Logger.Info("email template resolved",
		"recipients", len(req.Templates.To)+len(req.Templates.Cc),
		"tokens", len(req.Tokens),
		"recipient_tokens", len(req.RecipientTokens),
		"unresolved", len(unresolved),
	)

	if h.invocations != nil {
		inv := model.Invocation{
			Recipients:      len(req.Templates.To) + len(req.Templates.Cc),
			Tokens:          len(req.Tokens),
			RecipientTokens: len(req.RecipientTokens),
			Unresolved:      len(unresolved),
			Duration:        elapsed,
		}
		if key := middleware.KeyFromContext(r.Context()); key != nil {
			inv.KeyID = key.ID
		}
		// Log but do not surface to the caller.
		if err := h.invocations.Record(r.Context(), inv); err != nil {
			h.Logger.Error("email: failed to record invocation", "err", err)
		}
	}

	if err := h.writeJSON(w, http.StatusOK, model.NewEmailResponse(msg), nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

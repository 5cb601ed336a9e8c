package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mailmerge/internal/auth"
	"github.com/mailmerge/internal/model"
	"github.com/mailmerge/internal/store"
)

const (
	defaultInvocationLimit = 50
	maxInvocationLimit     = 500
)

type keyManager interface {
	ListAll(ctx context.Context) ([]model.FunctionKey, error)
	Create(ctx context.Context, id, name string, scope model.Scope, keyHash string) error
	Revoke(ctx context.Context, id string) error
}

type invocationLister interface {
	Recent(ctx context.Context, limit int) ([]model.Invocation, error)
}

// AdminHandler manages function keys and exposes the invocation log.
type AdminHandler struct {
	BaseHandler
	keys        keyManager
	invocations invocationLister
}

func NewAdminHandler(base BaseHandler, keys keyManager, invocations invocationLister) *AdminHandler {
	return &AdminHandler{BaseHandler: base, keys: keys, invocations: invocations}
}

// ListKeys returns all keys without their secrets.
func (h *AdminHandler) ListKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.keys.ListAll(r.Context())
	if err != nil {
		h.serverErrorResponse(w, r, err)
		return
	}
	if err := h.writeJSON(w, http.StatusOK, envelope{"keys": keys}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

// CreateKey generates a key. The raw key is only ever returned here.
func (h *AdminHandler) CreateKey(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name  string      `json:"name"`
		Scope model.Scope `json:"scope"`
	}
	if err := h.readJSON(w, r, &input); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		h.badRequestResponse(w, r, errors.New("name is required"))
		return
	}
	if input.Scope == "" {
		input.Scope = model.ScopeFunction
	}
	if !input.Scope.Valid() {
		h.badRequestResponse(w, r, fmt.Errorf("scope must be %q or %q", model.ScopeFunction, model.ScopeAdmin))
		return
	}

	raw, id, secret := auth.GenerateKey()
	hash, err := auth.Hash(secret)
	if err != nil {
		h.serverErrorResponse(w, r, err)
		return
	}
	if err := h.keys.Create(r.Context(), id, input.Name, input.Scope, hash); err != nil {
		h.serverErrorResponse(w, r, err)
		return
	}

	h.Logger.Info("admin: key created", "id", id, "scope", input.Scope)
	resp := envelope{"id": id, "name": input.Name, "scope": input.Scope, "key": raw}
	if err := h.writeJSON(w, http.StatusCreated, resp, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

// RevokeKey revokes the key named by the {id} URL parameter.
func (h *AdminHandler) RevokeKey(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := h.keys.Revoke(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		h.notFoundResponse(w, r)
		return
	} else if err != nil {
		h.serverErrorResponse(w, r, err)
		return
	}

	h.Logger.Info("admin: key revoked", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// ListInvocations returns the most recent invocations, newest first.
func (h *AdminHandler) ListInvocations(w http.ResponseWriter, r *http.Request) {
	limit := defaultInvocationLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			h.badRequestResponse(w, r, errors.New("limit must be a positive integer"))
			return
		}
		limit = min(n, maxInvocationLimit)
	}

	invocations, err := h.invocations.Recent(r.Context(), limit)
	if err != nil {
		h.serverErrorResponse(w, r, err)
		return
	}
	if err := h.writeJSON(w, http.StatusOK, envelope{"invocations": invocations}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

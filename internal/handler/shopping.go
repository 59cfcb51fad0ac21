package handler

import (
	"log/slog"
	"net/http"
	"unicode/utf8"

	"github.com/dukerupert/choreloop/internal/auth"
	"github.com/dukerupert/choreloop/internal/model"
	"github.com/dukerupert/choreloop/internal/sanitize"
	"github.com/dukerupert/choreloop/internal/store"
	ws "github.com/dukerupert/choreloop/internal/websocket"
)

const maxItemNameLength = 200

type ShoppingHandler struct {
	items  *store.ShoppingStore
	hub    *ws.Hub
	logger *slog.Logger
}

func NewShoppingHandler(items *store.ShoppingStore, hub *ws.Hub, logger *slog.Logger) *ShoppingHandler {
	return &ShoppingHandler{items: items, hub: hub, logger: logger}
}

type shoppingItemRequest struct {
	Name string `json:"name"`
}

func (h *ShoppingHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.items.List(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list shopping items", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list items"})
		return
	}
	if items == nil {
		items = []model.ShoppingItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ShoppingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req shoppingItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	name := sanitize.Text(req.Name)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if utf8.RuneCountInString(name) > maxItemNameLength {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is too long"})
		return
	}

	principal := auth.UserID(r.Context())
	item, err := h.items.Create(principal, name)
	if err != nil {
		h.logger.Error("create shopping item", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create item"})
		return
	}

	h.hub.Broadcast(principal, ws.NewMessage("shopping_item", "created", item.ID, nil))
	writeJSON(w, http.StatusCreated, item)
}

// owned loads the item named in the path and writes a 404 unless it belongs
// to the signed-in account.
func (h *ShoppingHandler) owned(w http.ResponseWriter, r *http.Request) (*model.ShoppingItem, bool) {
	item, err := h.items.GetByID(r.PathValue("id"))
	if err != nil {
		h.logger.Error("get shopping item", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get item"})
		return nil, false
	}
	if item == nil || item.UserID != auth.UserID(r.Context()) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not found"})
		return nil, false
	}
	return item, true
}

func (h *ShoppingHandler) toggle(w http.ResponseWriter, r *http.Request, fn func(string) (*model.ShoppingItem, error)) {
	item, ok := h.owned(w, r)
	if !ok {
		return
	}

	updated, err := fn(item.ID)
	if err != nil {
		h.logger.Error("toggle shopping item", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update item"})
		return
	}
	if updated == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not found"})
		return
	}

	h.hub.Broadcast(updated.UserID, ws.NewMessage("shopping_item", "updated", updated.ID, nil))
	writeJSON(w, http.StatusOK, updated)
}

func (h *ShoppingHandler) ToggleCompleted(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.items.ToggleCompleted)
}

func (h *ShoppingHandler) ToggleEssential(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.items.ToggleEssential)
}

func (h *ShoppingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	item, ok := h.owned(w, r)
	if !ok {
		return
	}

	if err := h.items.Delete(item.ID); err != nil {
		h.logger.Error("delete shopping item", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete item"})
		return
	}

	h.hub.Broadcast(item.UserID, ws.NewMessage("shopping_item", "deleted", item.ID, nil))
	w.WriteHeader(http.StatusNoContent)
}

// ClearCompleted drops bought items; essentials stay on the list.
func (h *ShoppingHandler) ClearCompleted(w http.ResponseWriter, r *http.Request) {
	principal := auth.UserID(r.Context())

	count, err := h.items.ClearCompleted(principal)
	if err != nil {
		h.logger.Error("clear shopping items", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to clear items"})
		return
	}

	if count > 0 {
		h.hub.Broadcast(principal, ws.NewMessage("shopping_item", "cleared", "", map[string]any{"count": count}))
	}
	writeJSON(w, http.StatusOK, map[string]int64{"cleared": count})
}

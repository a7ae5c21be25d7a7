package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"satupapan/internal/whiteboard/model"
	"satupapan/internal/whiteboard/service"
	"satupapan/middleware"
	"satupapan/pkg/logger"

	"github.com/gorilla/mux"
)

type WhiteboardHandler struct {
	Service *service.WhiteboardService
}

func NewWhiteboardHandler(service *service.WhiteboardService) *WhiteboardHandler {
	return &WhiteboardHandler{Service: service}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps service errors to status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, service.ErrForbidden):
		http.Error(w, err.Error(), http.StatusForbidden)
	default:
		http.Error(w, "Database error", http.StatusInternalServerError)
	}
}

func (h *WhiteboardHandler) CreateWhiteboard(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	var req model.CreateWhiteboardRequest
	_ = json.NewDecoder(r.Body).Decode(&req) // an empty body creates an untitled private board

	id, err := h.Service.Create(r.Context(), userID, req)
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to create whiteboard: %v", err)
		http.Error(w, "Failed to create whiteboard", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, model.CreateWhiteboardResponse{ID: id})
}

func (h *WhiteboardHandler) ListWhiteboards(w http.ResponseWriter, r *http.Request) {
	boards, err := h.Service.List(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		logger.Sugar.Errorf("Error fetching whiteboards: %v", err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, boards)
}

func (h *WhiteboardHandler) LoadShapes(w http.ResponseWriter, r *http.Request) {
	docID := mux.Vars(r)["id"]

	shapes, err := h.Service.LoadShapes(r.Context(), middleware.UserID(r.Context()), docID)
	if err != nil {
		logger.Sugar.Warnf("Handler: Failed to load shapes for %s: %v", docID, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.ShapesPayload{ID: docID, Shapes: shapes})
}

func (h *WhiteboardHandler) SaveShapes(w http.ResponseWriter, r *http.Request) {
	docID := mux.Vars(r)["id"]

	var req model.ShapesPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Shapes == nil {
		http.Error(w, "shapes cannot be null", http.StatusBadRequest)
		return
	}

	if err := h.Service.SaveShapes(r.Context(), middleware.UserID(r.Context()), docID, req.Shapes); err != nil {
		logger.Sugar.Errorf("Error saving whiteboard %s: %v", docID, err)
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *WhiteboardHandler) RenameWhiteboard(w http.ResponseWriter, r *http.Request) {
	docID := mux.Vars(r)["id"]

	var req model.UpdateWhiteboardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Title) == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.Service.Rename(r.Context(), middleware.UserID(r.Context()), docID, strings.TrimSpace(req.Title)); err != nil {
		logger.Sugar.Errorf("Handler: Failed to update title for whiteboard %s: %v", docID, err)
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Whiteboard updated successfully"))
}

func (h *WhiteboardHandler) AddCollaborator(w http.ResponseWriter, r *http.Request) {
	docID := mux.Vars(r)["id"]

	var req model.InviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.Service.Invite(r.Context(), middleware.UserID(r.Context()), docID, req); err != nil {
		logger.Sugar.Errorf("Handler: Failed to invite collaborator to %s: %v", docID, err)
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Collaborator added successfully"))
}

func (h *WhiteboardHandler) DeleteWhiteboard(w http.ResponseWriter, r *http.Request) {
	docID := mux.Vars(r)["id"]

	if err := h.Service.Delete(r.Context(), middleware.UserID(r.Context()), docID); err != nil {
		logger.Sugar.Errorf("Handler: Failed to delete whiteboard %s: %v", docID, err)
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Whiteboard deleted successfully"))
}

func (h *WhiteboardHandler) Presence(w http.ResponseWriter, r *http.Request) {
	docID := mux.Vars(r)["id"]

	counts, err := h.Service.Presence(r.Context(), middleware.UserID(r.Context()), docID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.PresenceResponse{ID: docID, Counts: counts})
}

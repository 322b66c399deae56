package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/hd-notes/internal/apperror"
	"github.com/sakif/hd-notes/internal/auth"
	"github.com/sakif/hd-notes/internal/service"
)

// NoteHandler exposes the authenticated notes endpoints:
//
//	GET    /home/notes           → list the caller's notes
//	POST   /home/addNote         → create a note
//	DELETE /home/deleteNote/{id} → delete one of the caller's notes
//
// All routes sit behind auth.RequireAuth, so the claims in the request
// context identify the owner.
type NoteHandler struct {
	svc    *service.NoteService
	logger *slog.Logger
}

// NewNoteHandler creates a NoteHandler.
func NewNoteHandler(svc *service.NoteService, logger *slog.Logger) *NoteHandler {
	return &NoteHandler{svc: svc, logger: logger}
}

// HandleList returns all of the caller's notes, newest first.
//
// HTTP: GET /home/notes
func (h *NoteHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		// Unreachable behind RequireAuth, but don't serve without an owner.
		writeError(w, apperror.Unauthorized("Invalid token"))
		return
	}

	notes, err := h.svc.List(r.Context(), claims.UserID)
	if err != nil {
		h.logger.Error("listing notes failed",
			slog.String("userID", claims.UserID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Notes fetched successfully",
		"notes":   notes,
	})
}

// HandleCreate stores a new note for the caller.
//
// HTTP: POST /home/addNote
func (h *NoteHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("Invalid token"))
		return
	}

	req, err := decodeValid[noteRequest](r)
	if err != nil {
		writeError(w, err)
		return
	}

	note, err := h.svc.Create(r.Context(), claims.UserID, req.Title, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Note created successfully",
		"note":    note,
	})
}

// HandleDelete removes one of the caller's notes. Someone else's note (or a
// nonexistent one) comes back 404.
//
// HTTP: DELETE /home/deleteNote/{id}
func (h *NoteHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("Invalid token"))
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, apperror.ValidationFailed("id", "Note id is required"))
		return
	}

	if err := h.svc.Delete(r.Context(), claims.UserID, id); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Note deleted successfully",
	})
}

package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"notekeeper/middleware"
	"notekeeper/models"
)

type NoteService interface {
	List(ctx context.Context, callerID string, filter models.NoteFilter) ([]models.Note, error)
	Create(ctx context.Context, callerID string, in models.NoteInput) (models.Note, error)
	Update(ctx context.Context, callerID, id string, patch models.NotePatch) (models.Note, error)
	Delete(ctx context.Context, callerID, id string) (models.DeleteResult, error)
}

type NotesHandler struct {
	notes  NoteService
	logger *slog.Logger
}

func NewNotesHandler(notes NoteService, logger *slog.Logger) *NotesHandler {
	return &NotesHandler{notes: notes, logger: logger}
}

// GetNotes handles GET /notes?category=&q=.
func (h *NotesHandler) GetNotes(w http.ResponseWriter, r *http.Request) {
	filter := models.NoteFilter{
		Category: r.URL.Query().Get("category"),
		Query:    r.URL.Query().Get("q"),
	}

	notes, err := h.notes.List(r.Context(), middleware.CallerID(r.Context()), filter)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

func (h *NotesHandler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var in models.NoteInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	note, err := h.notes.Create(r.Context(), middleware.CallerID(r.Context()), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// UpdateNote serves both PUT and PATCH; absent fields are left unchanged.
func (h *NotesHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	var patch models.NotePatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	note, err := h.notes.Update(r.Context(), middleware.CallerID(r.Context()), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (h *NotesHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	res, err := h.notes.Delete(r.Context(), middleware.CallerID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/hd-notes/internal/apperror"
	"github.com/sakif/hd-notes/internal/model"
	"github.com/sakif/hd-notes/internal/repository"
)

const (
	maxNoteTitleLen   = 200
	maxNoteContentLen = 10000
)

// NoteService handles note creation, listing, and deletion. Every operation
// takes the owner's userID from the verified session — there is no path to
// another user's notes.
type NoteService struct {
	repo   repository.NoteRepository
	logger *slog.Logger
}

// NewNoteService creates a NoteService.
func NewNoteService(repo repository.NoteRepository, logger *slog.Logger) *NoteService {
	return &NoteService{repo: repo, logger: logger}
}

// Create validates and stores a new note for userID.
func (s *NoteService) Create(ctx context.Context, userID, title, content string) (*model.Note, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperror.ValidationFailed("title", "Title is required")
	}
	if len(title) > maxNoteTitleLen {
		return nil, apperror.ValidationFailed("title", fmt.Sprintf("Title must be at most %d characters", maxNoteTitleLen))
	}
	if strings.TrimSpace(content) == "" {
		return nil, apperror.ValidationFailed("content", "Content is required")
	}
	if len(content) > maxNoteContentLen {
		return nil, apperror.ValidationFailed("content", fmt.Sprintf("Content must be at most %d characters", maxNoteContentLen))
	}

	note := &model.Note{
		UserID:  userID,
		Title:   title,
		Content: content,
	}
	if err := s.repo.CreateNote(ctx, note); err != nil {
		return nil, fmt.Errorf("service/note: creating note for user %s: %w", userID, err)
	}

	s.logger.Info("note created", slog.String("noteID", note.ID), slog.String("userID", userID))

	return note, nil
}

// List returns all of userID's notes, newest first. An empty list is a valid
// result, not an error.
func (s *NoteService) List(ctx context.Context, userID string) ([]model.Note, error) {
	notes, err := s.repo.ListNotesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/note: listing notes for user %s: %w", userID, err)
	}
	return notes, nil
}

// Delete removes one of userID's notes. Attempting to delete a note that
// doesn't exist or belongs to someone else yields not-found either way.
func (s *NoteService) Delete(ctx context.Context, userID, id string) error {
	if err := s.repo.DeleteOwnedNote(ctx, id, userID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		return fmt.Errorf("service/note: deleting note %s: %w", id, err)
	}

	s.logger.Info("note deleted", slog.String("noteID", id), slog.String("userID", userID))
	return nil
}

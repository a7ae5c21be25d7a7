package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"satupapan/internal/protocol"
	"satupapan/internal/shape"
	"satupapan/internal/whiteboard/model"
	"satupapan/internal/whiteboard/repository"
	"satupapan/socket"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("whiteboard not found")
	ErrForbidden = errors.New("forbidden")
)

const defaultTitle = "Untitled Whiteboard"

type WhiteboardService struct {
	Repo *repository.WhiteboardRepository
	Hub  *socket.Hub
}

func NewWhiteboardService(repo *repository.WhiteboardRepository, hub *socket.Hub) *WhiteboardService {
	return &WhiteboardService{Repo: repo, Hub: hub}
}

func (s *WhiteboardService) Create(ctx context.Context, userID string, req model.CreateWhiteboardRequest) (string, error) {
	id := uuid.NewString()
	title := req.Title
	if title == "" {
		title = defaultTitle
	}
	if err := s.Repo.Create(ctx, id, title, userID, req.IsPublic); err != nil {
		return "", err
	}
	return id, nil
}

// Access resolves what a user may do with a whiteboard: the owner edits, a collaborator gets its
// grant, anyone may view a public whiteboard.
func (s *WhiteboardService) Access(ctx context.Context, docID, userID string) (socket.Access, error) {
	meta, err := s.Repo.GetMeta(ctx, docID)
	if errors.Is(err, sql.ErrNoRows) {
		return socket.Access{}, nil
	}
	if err != nil {
		return socket.Access{}, err
	}

	access := socket.Access{Exists: true}
	if meta.OwnerID == userID {
		access.CanView, access.CanEdit = true, true
		return access, nil
	}
	canEdit, err := s.Repo.GetCollaboratorGrant(ctx, docID, userID)
	switch {
	case err == nil:
		access.CanView, access.CanEdit = true, canEdit
	case errors.Is(err, sql.ErrNoRows):
		access.CanView = meta.IsPublic
	default:
		return socket.Access{}, err
	}
	return access, nil
}

func (s *WhiteboardService) require(ctx context.Context, docID, userID string, edit bool) error {
	access, err := s.Access(ctx, docID, userID)
	if err != nil {
		return err
	}
	if !access.Exists {
		return ErrNotFound
	}
	if !access.CanView || (edit && !access.CanEdit) {
		return ErrForbidden
	}
	return nil
}

func (s *WhiteboardService) requireOwner(ctx context.Context, docID, userID string) error {
	meta, err := s.Repo.GetMeta(ctx, docID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if meta.OwnerID != userID {
		return fmt.Errorf("%w: only the owner can do this", ErrForbidden)
	}
	return nil
}

func (s *WhiteboardService) LoadShapes(ctx context.Context, userID, docID string) ([]shape.Shape, error) {
	if err := s.require(ctx, docID, userID, false); err != nil {
		return nil, err
	}
	shapes, err := s.Repo.LoadShapes(ctx, docID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return shapes, err
}

// SaveShapes persists a full collection. Live participants are synchronised over the socket, so
// nothing is broadcast here.
func (s *WhiteboardService) SaveShapes(ctx context.Context, userID, docID string, shapes []shape.Shape) error {
	if err := s.require(ctx, docID, userID, true); err != nil {
		return err
	}
	err := s.Repo.SaveShapes(ctx, docID, shape.NormalizeAll(shapes))
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (s *WhiteboardService) Rename(ctx context.Context, userID, docID, title string) error {
	n, err := s.Repo.UpdateTitle(ctx, docID, title, userID)
	if err != nil {
		return err
	}
	if n == 0 {
		// Either the whiteboard is gone or the caller does not own it.
		if err := s.requireOwner(ctx, docID, userID); err != nil {
			return err
		}
		return ErrNotFound
	}
	return nil
}

func (s *WhiteboardService) Invite(ctx context.Context, userID, docID string, req model.InviteRequest) error {
	if err := s.requireOwner(ctx, docID, userID); err != nil {
		return err
	}
	targetUserID, err := s.Repo.GetUserByEmail(ctx, req.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: no user with that email", ErrNotFound)
	}
	if err != nil {
		return err
	}
	return s.Repo.AddCollaborator(ctx, docID, targetUserID, req.CanEdit)
}

func (s *WhiteboardService) Delete(ctx context.Context, userID, docID string) error {
	if err := s.requireOwner(ctx, docID, userID); err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, docID); err != nil {
		return err
	}
	if s.Hub != nil {
		s.Hub.RemoveDocument(docID)
	}
	return nil
}

func (s *WhiteboardService) List(ctx context.Context, userID string) ([]model.WhiteboardMetadata, error) {
	boards, err := s.Repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range boards {
		members, _ := s.Repo.GetMembers(ctx, boards[i].ID)
		if members == nil {
			members = []model.CollaboratorInfo{}
		}
		boards[i].Collab = members
	}
	return boards, nil
}

// Presence returns the live counts of a whiteboard's room.
func (s *WhiteboardService) Presence(ctx context.Context, userID, docID string) (protocol.Counts, error) {
	if err := s.require(ctx, docID, userID, false); err != nil {
		return protocol.Counts{}, err
	}
	if s.Hub == nil {
		return protocol.Counts{}, nil
	}
	return s.Hub.Counts(docID), nil
}

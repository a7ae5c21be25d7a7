package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"satupapan/internal/shape"
	"satupapan/internal/whiteboard/model"
	"satupapan/pkg/logger"
)

type WhiteboardRepository struct {
	DB *sql.DB
}

func NewWhiteboardRepository(db *sql.DB) *WhiteboardRepository {
	return &WhiteboardRepository{DB: db}
}

// Meta is the access-relevant part of a whiteboard row.
type Meta struct {
	OwnerID  string
	IsPublic bool
}

func (r *WhiteboardRepository) Create(ctx context.Context, id, title, ownerID string, isPublic bool) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO whiteboards (id, title, owner_id, is_public, shapes, updated_at) VALUES ($1, $2, $3, $4, '[]', NOW())`,
		id, title, ownerID, isPublic)
	if err != nil {
		logger.Sugar.Errorf("Failed to create whiteboard: %v", err)
	}
	return err
}

func (r *WhiteboardRepository) GetMeta(ctx context.Context, docID string) (Meta, error) {
	var m Meta
	err := r.DB.QueryRowContext(ctx, "SELECT owner_id, is_public FROM whiteboards WHERE id = $1", docID).Scan(&m.OwnerID, &m.IsPublic)
	if err != nil && err != sql.ErrNoRows {
		logger.Sugar.Errorf("Failed to get whiteboard %s: %v", docID, err)
	}
	return m, err
}

// GetCollaboratorGrant returns sql.ErrNoRows when the user is not a collaborator.
func (r *WhiteboardRepository) GetCollaboratorGrant(ctx context.Context, docID, userID string) (bool, error) {
	var canEdit bool
	err := r.DB.QueryRowContext(ctx, "SELECT can_edit FROM collaborators WHERE whiteboard_id = $1 AND user_id = $2", docID, userID).Scan(&canEdit)
	if err != nil && err != sql.ErrNoRows {
		logger.Sugar.Errorf("Failed to get collaborator grant: %v", err)
	}
	return canEdit, err
}

// LoadShapes reads the persisted collection, repairing malformed entries. A whiteboard that was
// never saved yields an empty collection.
func (r *WhiteboardRepository) LoadShapes(ctx context.Context, docID string) ([]shape.Shape, error) {
	var raw []byte
	err := r.DB.QueryRowContext(ctx, "SELECT shapes FROM whiteboards WHERE id = $1", docID).Scan(&raw)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Sugar.Errorf("Failed to load shapes for whiteboard %s: %v", docID, err)
		}
		return nil, err
	}
	if len(raw) == 0 {
		return []shape.Shape{}, nil
	}
	var shapes []shape.Shape
	if err := json.Unmarshal(raw, &shapes); err != nil {
		logger.Sugar.Errorf("Corrupt shapes for whiteboard %s: %v", docID, err)
		return nil, fmt.Errorf("decode shapes of %s: %w", docID, err)
	}
	if shapes == nil {
		return []shape.Shape{}, nil
	}
	return shape.NormalizeAll(shapes), nil
}

// SaveShapes replaces the persisted collection. Transient selection and editing flags are not
// stored.
func (r *WhiteboardRepository) SaveShapes(ctx context.Context, docID string, shapes []shape.Shape) error {
	stored := make([]shape.Shape, len(shapes))
	for i, s := range shapes {
		stored[i] = s.Detached()
	}
	raw, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode shapes of %s: %w", docID, err)
	}
	result, err := r.DB.ExecContext(ctx, `UPDATE whiteboards SET shapes = $1, updated_at = NOW() WHERE id = $2`, raw, docID)
	if err != nil {
		logger.Sugar.Errorf("Failed to save shapes for whiteboard %s: %v", docID, err)
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *WhiteboardRepository) Delete(ctx context.Context, docID string) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM whiteboards WHERE id = $1", docID)
	if err != nil {
		logger.Sugar.Errorf("Failed to delete whiteboard %s: %v", docID, err)
	}
	return err
}

// UpdateTitle renames a whiteboard the owner holds. It reports how many rows changed.
func (r *WhiteboardRepository) UpdateTitle(ctx context.Context, docID, title, ownerID string) (int64, error) {
	result, err := r.DB.ExecContext(ctx, "UPDATE whiteboards SET title = $1, updated_at = NOW() WHERE id = $2 AND owner_id = $3", title, docID, ownerID)
	if err != nil {
		logger.Sugar.Errorf("Failed to update title for whiteboard %s: %v", docID, err)
		return 0, err
	}
	return result.RowsAffected()
}

func (r *WhiteboardRepository) GetUserByEmail(ctx context.Context, email string) (string, error) {
	var userID string
	err := r.DB.QueryRowContext(ctx, "SELECT id FROM users WHERE email = $1", email).Scan(&userID)
	if err != nil {
		logger.Sugar.Errorf("Failed to get user by email %s: %v", email, err)
	}
	return userID, err
}

func (r *WhiteboardRepository) AddCollaborator(ctx context.Context, docID, userID string, canEdit bool) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO collaborators (whiteboard_id, user_id, can_edit) VALUES ($1, $2, $3)
		ON CONFLICT (whiteboard_id, user_id) DO UPDATE SET can_edit = $3`, docID, userID, canEdit)
	if err != nil {
		logger.Sugar.Errorf("Failed to add collaborator %s to whiteboard %s: %v", userID, docID, err)
	}
	return err
}

// ListByUser returns the whiteboards a user owns or collaborates on, newest first.
func (r *WhiteboardRepository) ListByUser(ctx context.Context, userID string) ([]model.WhiteboardMetadata, error) {
	query := `
		SELECT id, title, updated_at, owner_id, is_public, jsonb_array_length(shapes) FROM whiteboards WHERE owner_id = $1
		UNION
		SELECT w.id, w.title, w.updated_at, w.owner_id, w.is_public, jsonb_array_length(w.shapes) FROM whiteboards w JOIN collaborators c ON w.id = c.whiteboard_id WHERE c.user_id = $1
		ORDER BY updated_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		logger.Sugar.Errorf("Failed to get whiteboards for user %s: %v", userID, err)
		return nil, err
	}
	defer rows.Close()

	boards := []model.WhiteboardMetadata{}
	for rows.Next() {
		var b model.WhiteboardMetadata
		var ownerID string
		if err := rows.Scan(&b.ID, &b.Title, &b.UpdatedAt, &ownerID, &b.IsPublic, &b.ShapeCount); err != nil {
			logger.Sugar.Errorf("Failed to scan whiteboard row: %v", err)
			continue
		}
		b.IsOwner = ownerID == userID
		boards = append(boards, b)
	}
	return boards, rows.Err()
}

func (r *WhiteboardRepository) GetMembers(ctx context.Context, docID string) ([]model.CollaboratorInfo, error) {
	query := `
		SELECT u.id, u.email, 'owner' AS role FROM whiteboards w JOIN users u ON w.owner_id = u.id WHERE w.id = $1
		UNION ALL
		SELECT u.id, u.email, CASE WHEN c.can_edit THEN 'editor' ELSE 'viewer' END FROM collaborators c JOIN users u ON c.user_id = u.id WHERE c.whiteboard_id = $1
	`
	rows, err := r.DB.QueryContext(ctx, query, docID)
	if err != nil {
		logger.Sugar.Errorf("Failed to get members for whiteboard %s: %v", docID, err)
		return nil, err
	}
	defer rows.Close()

	members := []model.CollaboratorInfo{}
	for rows.Next() {
		var c model.CollaboratorInfo
		if err := rows.Scan(&c.ID, &c.Email, &c.Role); err == nil {
			members = append(members, c)
		}
	}
	return members, nil
}

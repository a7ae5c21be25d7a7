package model

import (
	"time"

	"satupapan/internal/protocol"
	"satupapan/internal/shape"
)

type CreateWhiteboardRequest struct {
	Title    string `json:"title"`
	IsPublic bool   `json:"is_public"`
}

type UpdateWhiteboardRequest struct {
	Title string `json:"title"`
}

type CreateWhiteboardResponse struct {
	ID string `json:"whiteboard_id"`
}

type CollaboratorInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

const (
	RoleOwner  = "owner"
	RoleEditor = "editor"
	RoleViewer = "viewer"
)

type WhiteboardMetadata struct {
	ID         string             `json:"id"`
	Title      string             `json:"title"`
	UpdatedAt  time.Time          `json:"updated_at"`
	IsOwner    bool               `json:"is_owner"`
	IsPublic   bool               `json:"is_public"`
	ShapeCount int                `json:"shape_count"`
	Collab     []CollaboratorInfo `json:"collab"`
}

type InviteRequest struct {
	Email   string `json:"email"`
	CanEdit bool   `json:"can_edit"`
}

// ShapesPayload is the body of the load and save endpoints.
type ShapesPayload struct {
	ID     string        `json:"whiteboard_id,omitempty"`
	Shapes []shape.Shape `json:"shapes"`
}

type PresenceResponse struct {
	ID string `json:"whiteboard_id"`
	protocol.Counts
}

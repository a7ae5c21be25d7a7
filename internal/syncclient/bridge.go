package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"satupapan/internal/shape"
	"satupapan/internal/whiteboard/model"
)

// HTTPBridge loads and saves shapes through the whiteboard REST API.
type HTTPBridge struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewHTTPBridge(baseURL, token string) *HTTPBridge {
	return &HTTPBridge{
		BaseURL: baseURL,
		Token:   token,
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (b *HTTPBridge) shapesURL(docID string) (string, error) {
	return url.JoinPath(b.BaseURL, "api", "whiteboards", docID, "shapes")
}

func (b *HTTPBridge) do(req *http.Request) (*http.Response, error) {
	if b.Token != "" {
		req.Header.Set("Authorization", "Bearer "+b.Token)
	}
	client := b.Client
	if client == nil {
		client = http.DefaultClient
	}
	return client.Do(req)
}

func (b *HTTPBridge) LoadShapes(ctx context.Context, docID string) ([]shape.Shape, error) {
	u, err := b.shapesURL(docID)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", docID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, statusError("load", docID, resp)
	}

	var payload model.ShapesPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode shapes of %s: %w", docID, err)
	}
	if payload.Shapes == nil {
		return []shape.Shape{}, nil
	}
	return shape.NormalizeAll(payload.Shapes), nil
}

func (b *HTTPBridge) SaveShapes(ctx context.Context, docID string, shapes []shape.Shape) error {
	u, err := b.shapesURL(docID)
	if err != nil {
		return err
	}
	if shapes == nil {
		shapes = []shape.Shape{}
	}
	body, err := json.Marshal(model.ShapesPayload{Shapes: shapes})
	if err != nil {
		return fmt.Errorf("failed to encode shapes of %s: %w", docID, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := b.do(req)
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", docID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return statusError("save", docID, resp)
	}
	return nil
}

func statusError(op, docID string, resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%s %s: unexpected status %d: %s", op, docID, resp.StatusCode, bytes.TrimSpace(msg))
}

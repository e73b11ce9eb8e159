package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"storyteller-admin/internal/model"
	"storyteller-admin/internal/upstream"
	"storyteller-admin/pkg/apierror"
)

const (
	ReviewApprove = "approve"
	ReviewReject  = "reject"

	defaultApproveNotes = "Approved by admin"
	defaultRejectNotes  = "Rejected by admin"
)

type StoryService struct {
	client *upstream.Client
}

func NewStoryService(client *upstream.Client) *StoryService {
	return &StoryService{client: client}
}

type reviewUpstreamRequest struct {
	ID          json.RawMessage `json:"id"`
	ReviewNotes string          `json:"reviewNotes"`
}

// Review approves or rejects a pending publish request. Empty notes are
// replaced with a default per action.
func (s *StoryService) Review(ctx context.Context, token string, req model.ReviewRequest) (*upstream.Response, error) {
	action := strings.ToLower(strings.TrimSpace(req.Action))

	notes := strings.TrimSpace(req.ReviewNotes)
	switch action {
	case ReviewApprove:
		if notes == "" {
			notes = defaultApproveNotes
		}
	case ReviewReject:
		if notes == "" {
			notes = defaultRejectNotes
		}
	default:
		return nil, apierror.BadRequest("Invalid action", "action must be approve or reject")
	}

	id := bytes.TrimSpace(req.ID)
	if len(id) == 0 || bytes.Equal(id, []byte("null")) || bytes.Equal(id, []byte(`""`)) {
		return nil, apierror.BadRequest("Story id is required", "id")
	}

	return s.client.DoJSON(ctx, http.MethodPut, "/Story/publish-request/"+action, token, reviewUpstreamRequest{
		ID:          json.RawMessage(id),
		ReviewNotes: notes,
	})
}

// PanelTarget selects the panel to update by id, else by index. With neither
// set a new panel is appended.
type PanelTarget struct {
	PanelID    string
	PanelIndex *int
}

type PanelMedia struct {
	Content  string
	ImageURL string
	AudioURL string
}

// AttachPanelMedia merges generated asset URLs into one panel of the stored
// story and writes the whole story back. Unknown story fields are preserved.
func (s *StoryService) AttachPanelMedia(ctx context.Context, token string, storyID string, target PanelTarget, media PanelMedia) error {
	path := upstream.Path("Story", storyID)

	resp, err := s.client.Do(ctx, upstream.Request{Method: http.MethodGet, Path: path, Token: token})
	if err != nil {
		return fmt.Errorf("load story %s: %w", storyID, err)
	}

	var envelope map[string]any
	if err := resp.JSON(&envelope); err != nil {
		return fmt.Errorf("load story %s: %w", storyID, err)
	}
	story := envelope
	if inner, ok := envelope["data"].(map[string]any); ok {
		story = inner
	}

	panelsKey := firstKey(story, "panels", "Panels")
	panels, _ := story[panelsKey].([]any)

	index, err := locatePanel(panels, target)
	if err != nil {
		return fmt.Errorf("story %s: %w", storyID, err)
	}

	if index == len(panels) {
		panels = append(panels, map[string]any{
			"panelNumber": len(panels) + 1,
			"content":     media.Content,
		})
	}

	panel, _ := panels[index].(map[string]any)
	setField(panel, "imageUrl", media.ImageURL)
	setField(panel, "audioUrl", media.AudioURL)
	panels[index] = panel
	story[panelsKey] = panels

	if _, err := s.client.DoJSON(ctx, http.MethodPut, path, token, story); err != nil {
		return fmt.Errorf("update story %s: %w", storyID, err)
	}

	return nil
}

func locatePanel(panels []any, target PanelTarget) (int, error) {
	if target.PanelID != "" {
		for i, raw := range panels {
			panel, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			if fmt.Sprint(panel[firstKey(panel, "id", "Id", "panelId")]) == target.PanelID {
				return i, nil
			}
		}
		return 0, fmt.Errorf("panel %s not found: %w", target.PanelID, model.ErrInvalidInput)
	}

	if target.PanelIndex != nil {
		i := *target.PanelIndex
		if i < 0 || i >= len(panels) {
			return 0, fmt.Errorf("panel index %d out of range: %w", i, model.ErrInvalidInput)
		}
		if _, ok := panels[i].(map[string]any); !ok {
			return 0, fmt.Errorf("panel index %d is not an object: %w", i, model.ErrInvalidInput)
		}
		return i, nil
	}

	return len(panels), nil
}

// setField writes value under key, reusing a differently cased existing key.
func setField(obj map[string]any, key string, value string) {
	if value == "" {
		return
	}
	pascal := strings.ToUpper(key[:1]) + key[1:]
	obj[firstKey(obj, key, pascal)] = value
}

// firstKey returns the first key present in obj, defaulting to keys[0].
func firstKey(obj map[string]any, keys ...string) string {
	for _, key := range keys {
		if _, ok := obj[key]; ok {
			return key
		}
	}
	return keys[0]
}

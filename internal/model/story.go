package model

import "time"

const (
	StoryStatusDraft     = "Draft"
	StoryStatusPending   = "Pending"
	StoryStatusPublished = "Published"
	StoryStatusRejected  = "Rejected"
)

type Story struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	CoverImageURL string    `json:"coverImageUrl,omitempty"`
	Status        string    `json:"status"`
	IsFeatured    bool      `json:"isFeatured"`
	AuthorID      string    `json:"authorId,omitempty"`
	Panels        []Panel   `json:"panels,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Panel is one page of a story with optional illustration and narration.
type Panel struct {
	ID          string `json:"id"`
	PanelNumber int    `json:"panelNumber"`
	Content     string `json:"content"`
	ImageURL    string `json:"imageUrl,omitempty"`
	AudioURL    string `json:"audioUrl,omitempty"`
}

type PublishRequest struct {
	ID          string    `json:"id"`
	StoryID     string    `json:"storyId"`
	Status      string    `json:"status"`
	ReviewNotes string    `json:"reviewNotes,omitempty"`
	RequestedAt time.Time `json:"requestedAt"`
}

package model

import "time"

type Comment struct {
	ID        string    `json:"id"`
	StoryID   string    `json:"storyId"`
	UserID    string    `json:"userId"`
	Content   string    `json:"content"`
	IsFlagged bool      `json:"isFlagged"`
	IsHidden  bool      `json:"isHidden"`
	CreatedAt time.Time `json:"createdAt"`
}

type IssueReport struct {
	ID          string    `json:"id"`
	ReporterID  string    `json:"reporterId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

type SystemConfig struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}

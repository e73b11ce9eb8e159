package model

import "encoding/json"

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Email           string `json:"email,omitempty" validate:"omitempty,email"`
	Token           string `json:"token" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword,omitempty" validate:"omitempty,eqfield=NewPassword"`
}

type VerifyTokenRequest struct {
	Email string `json:"email,omitempty" validate:"omitempty,email"`
	Token string `json:"token" validate:"required"`
}

// ReviewRequest approves or rejects a pending publish request. ID is kept raw
// so numeric and string identifiers reach the backend unchanged.
type ReviewRequest struct {
	ID          json.RawMessage `json:"id"`
	Action      string          `json:"action"`
	ReviewNotes string          `json:"reviewNotes"`
}

type OptimizeRequest struct {
	Prompt string `json:"prompt" validate:"required"`
}

type TranslateRequest struct {
	Text string `json:"text" validate:"required"`
}

type ImageRequest struct {
	Prompt string `json:"prompt" validate:"required"`
	Width  int    `json:"width,omitempty" validate:"omitempty,min=64,max=2048"`
	Height int    `json:"height,omitempty" validate:"omitempty,min=64,max=2048"`
	Seed   *int64 `json:"seed,omitempty"`
	Output string `json:"output,omitempty" validate:"omitempty,oneof=dataurl binary"`
}

type TTSRequest struct {
	Text  string  `json:"text" validate:"required"`
	Voice string  `json:"voice,omitempty"`
	Speed float64 `json:"speed,omitempty" validate:"omitempty,gt=0,lte=4"`
}

type LongTTSRequest struct {
	Text     string  `json:"text" validate:"required"`
	Provider string  `json:"provider,omitempty" validate:"omitempty,oneof=generic vietnamese"`
	Voice    string  `json:"voice,omitempty"`
	Speed    float64 `json:"speed,omitempty" validate:"omitempty,gt=0,lte=4"`
}

type PipelineRequest struct {
	StoryID       string `json:"storyId" validate:"required"`
	PanelID       string `json:"panelId,omitempty"`
	PanelIndex    *int   `json:"panelIndex,omitempty" validate:"omitempty,min=0"`
	Prompt        string `json:"prompt" validate:"required"`
	GenerateImage bool   `json:"generateImage"`
	Narration     string `json:"narration,omitempty"`
	VoiceProvider string `json:"voiceProvider,omitempty" validate:"omitempty,oneof=generic vietnamese"`
	Voice         string `json:"voice,omitempty"`
}

// Package pipeline runs story asset generation server-side as an explicit
// state machine: optimize, translate, generate image, generate audio, upload,
// persist.
package pipeline

import (
	"time"
)

type State string

const (
	StatePending         State = "Pending"
	StateOptimizing      State = "Optimizing"
	StateTranslating     State = "Translating"
	StateGeneratingImage State = "GeneratingImage"
	StateGeneratingAudio State = "GeneratingAudio"
	StateUploading       State = "Uploading"
	StatePersisting      State = "Persisting"
	StateDone            State = "Done"
	StateFailed          State = "Failed"
)

// workingStates is the fixed step order of every run.
var workingStates = []State{
	StateOptimizing,
	StateTranslating,
	StateGeneratingImage,
	StateGeneratingAudio,
	StateUploading,
	StatePersisting,
}

func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// failureMessage is the single message surfaced when a step fails.
func (s State) failureMessage() string {
	switch s {
	case StateOptimizing:
		return "Failed to optimize prompt"
	case StateTranslating:
		return "Failed to translate text"
	case StateGeneratingImage:
		return "Failed to generate image"
	case StateGeneratingAudio:
		return "Failed to generate speech"
	case StateUploading:
		return "Failed to upload file"
	case StatePersisting:
		return "Failed to update story"
	default:
		return "Pipeline failed"
	}
}

type StepStatus string

const (
	StepPending StepStatus = "pending"
	StepRunning StepStatus = "running"
	StepDone    StepStatus = "done"
	StepSkipped StepStatus = "skipped"
	StepFailed  StepStatus = "failed"
)

type Step struct {
	State      State      `json:"state"`
	Status     StepStatus `json:"status"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	Error      string     `json:"error,omitempty"`
}

type Request struct {
	StoryID       string `json:"storyId"`
	PanelID       string `json:"panelId,omitempty"`
	PanelIndex    *int   `json:"panelIndex,omitempty"`
	Prompt        string `json:"prompt"`
	GenerateImage bool   `json:"generateImage"`
	Narration     string `json:"narration,omitempty"`
	VoiceProvider string `json:"voiceProvider,omitempty"`
	Voice         string `json:"voice,omitempty"`
}

func (r Request) wants(state State) bool {
	switch state {
	case StateTranslating, StateGeneratingImage:
		return r.GenerateImage
	case StateGeneratingAudio:
		return r.Narration != ""
	default:
		return true
	}
}

type Run struct {
	ID              string    `json:"id"`
	StoryID         string    `json:"storyId"`
	PanelID         string    `json:"panelId,omitempty"`
	State           State     `json:"state"`
	Steps           []Step    `json:"steps"`
	Request         Request   `json:"request"`
	OptimizedPrompt string    `json:"optimizedPrompt,omitempty"`
	ImageURL        string    `json:"imageUrl,omitempty"`
	AudioURL        string    `json:"audioUrl,omitempty"`
	Orphans         []string  `json:"orphans,omitempty"`
	Error           string    `json:"error,omitempty"`
	ErrorDetail     string    `json:"errorDetail,omitempty"`
	FailedStep      State     `json:"failedStep,omitempty"`
	CreatedBy       string    `json:"createdBy,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func newRun(id string, createdBy string, req Request, now time.Time) Run {
	steps := make([]Step, 0, len(workingStates))
	for _, state := range workingStates {
		status := StepPending
		if !req.wants(state) {
			status = StepSkipped
		}
		steps = append(steps, Step{State: state, Status: status})
	}

	return Run{
		ID:        id,
		StoryID:   req.StoryID,
		PanelID:   req.PanelID,
		State:     StatePending,
		Steps:     steps,
		Request:   req,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a copy that shares no slices with r.
func (r Run) Clone() Run {
	out := r
	out.Steps = append([]Step(nil), r.Steps...)
	out.Orphans = append([]string(nil), r.Orphans...)
	if r.Request.PanelIndex != nil {
		index := *r.Request.PanelIndex
		out.Request.PanelIndex = &index
	}
	return out
}

func (r *Run) step(state State) *Step {
	for i := range r.Steps {
		if r.Steps[i].State == state {
			return &r.Steps[i]
		}
	}
	return nil
}

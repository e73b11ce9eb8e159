package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"storyteller-admin/internal/cdn"
	"storyteller-admin/internal/event"
	"storyteller-admin/internal/model"
	"storyteller-admin/internal/service"
	"storyteller-admin/pkg/apierror"
)

const DefaultTimeout = 5 * time.Minute

var ErrRunnerClosed = errors.New("pipeline runner is shut down")

// Generator is the subset of the AI service a run drives.
type Generator interface {
	Optimize(ctx context.Context, token string, prompt string) (service.OptimizeResult, error)
	Translate(ctx context.Context, token string, text string) (string, error)
	GenerateImage(ctx context.Context, token string, req model.ImageRequest) (service.Image, error)
	Synthesize(ctx context.Context, token string, speech service.Speech) ([]byte, error)
}

type StoryWriter interface {
	AttachPanelMedia(ctx context.Context, token string, storyID string, target service.PanelTarget, media service.PanelMedia) error
}

type Options struct {
	Timeout time.Duration
	// Compensate deletes uploaded assets of a failed run when the uploader
	// supports it.
	Compensate bool
}

type Runner struct {
	generator Generator
	stories   StoryWriter
	uploader  cdn.Uploader
	store     Store
	bus       event.Bus
	opts      Options

	base   context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
	now    func() time.Time
}

func NewRunner(generator Generator, stories StoryWriter, uploader cdn.Uploader, store Store, bus event.Bus, opts Options) *Runner {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	base, cancel := context.WithCancel(context.Background())
	return &Runner{
		generator: generator,
		stories:   stories,
		uploader:  uploader,
		store:     store,
		bus:       bus,
		opts:      opts,
		base:      base,
		cancel:    cancel,
		now:       time.Now,
	}
}

// Start records a pending run and executes it in the background, detached
// from ctx. ctx only bounds the initial save.
func (r *Runner) Start(ctx context.Context, token string, createdBy string, req Request) (Run, error) {
	req.StoryID = strings.TrimSpace(req.StoryID)
	req.Prompt = strings.TrimSpace(req.Prompt)
	req.Narration = strings.TrimSpace(req.Narration)

	if req.StoryID == "" || req.Prompt == "" {
		return Run{}, apierror.BadRequest("Validation failed", "storyId and prompt are required")
	}
	if !req.GenerateImage && req.Narration == "" {
		return Run{}, apierror.BadRequest("Validation failed", "request an image, a narration or both")
	}
	if !r.acquire() {
		return Run{}, ErrRunnerClosed
	}

	run := newRun(uuid.NewString(), createdBy, req, r.now().UTC())
	if err := r.store.Save(ctx, run); err != nil {
		r.wg.Done()
		return Run{}, fmt.Errorf("save pipeline run: %w", err)
	}
	r.publish(event.TypePipelineStarted, run)

	pending := run.Clone()
	go func() {
		defer r.wg.Done()
		r.execute(token, run)
	}()

	return pending, nil
}

// acquire reserves a slot in wg unless Shutdown has begun.
func (r *Runner) acquire() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	r.wg.Add(1)
	return true
}

func (r *Runner) Get(ctx context.Context, id string) (Run, error) {
	return r.store.Get(ctx, id)
}

func (r *Runner) List(ctx context.Context, limit int) ([]Run, error) {
	return r.store.List(ctx, limit)
}

// Shutdown cancels in-flight runs and waits for them to record their final
// state, or for ctx to end.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until every started run has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// execution carries the intermediate artefacts between steps.
type execution struct {
	run      Run
	token    string
	prompt   string
	english  string
	image    service.Image
	audio    []byte
	uploaded []string
}

func (r *Runner) execute(token string, run Run) {
	ctx, cancel := context.WithTimeout(r.base, r.opts.Timeout)
	defer cancel()

	exec := &execution{run: run, token: token}
	log := slog.With("run_id", run.ID, "story_id", run.StoryID)

	for _, state := range workingStates {
		if !run.Request.wants(state) {
			continue
		}

		r.enter(ctx, exec, state)

		if err := r.perform(ctx, exec, state); err != nil {
			log.Warn("pipeline step failed", "state", state, "error", err)
			r.fail(ctx, exec, state, err)
			return
		}

		r.leave(ctx, exec, state)
	}

	exec.run.State = StateDone
	exec.run.UpdatedAt = r.now().UTC()
	r.save(ctx, exec.run)
	r.publish(event.TypePipelineCompleted, exec.run)
	log.Info("pipeline completed", "image_url", exec.run.ImageURL, "audio_url", exec.run.AudioURL)
}

func (r *Runner) perform(ctx context.Context, exec *execution, state State) error {
	req := exec.run.Request

	switch state {
	case StateOptimizing:
		result, err := r.generator.Optimize(ctx, exec.token, req.Prompt)
		if err != nil {
			return err
		}
		exec.prompt = result.OptimizedPrompt
		exec.run.OptimizedPrompt = result.OptimizedPrompt

	case StateTranslating:
		english, err := r.generator.Translate(ctx, exec.token, exec.prompt)
		if err != nil {
			return err
		}
		exec.english = english

	case StateGeneratingImage:
		img, err := r.generator.GenerateImage(ctx, exec.token, model.ImageRequest{Prompt: exec.english})
		if err != nil {
			return err
		}
		exec.image = img

	case StateGeneratingAudio:
		audio, err := r.generator.Synthesize(ctx, exec.token, service.Speech{
			Text:     req.Narration,
			Provider: voiceProvider(req),
			Voice:    req.Voice,
		})
		if err != nil {
			return err
		}
		exec.audio = audio

	case StateUploading:
		if len(exec.image.Data) > 0 {
			url, err := r.upload(ctx, exec, "panel-image"+extensionFor(exec.image.ContentType), exec.image.ContentType, exec.image.Data)
			if err != nil {
				return err
			}
			exec.run.ImageURL = url
		}
		if len(exec.audio) > 0 {
			url, err := r.upload(ctx, exec, "panel-narration.mp3", "audio/mpeg", exec.audio)
			if err != nil {
				return err
			}
			exec.run.AudioURL = url
		}

	case StatePersisting:
		return r.stories.AttachPanelMedia(ctx, exec.token, req.StoryID,
			service.PanelTarget{PanelID: req.PanelID, PanelIndex: req.PanelIndex},
			service.PanelMedia{Content: req.Narration, ImageURL: exec.run.ImageURL, AudioURL: exec.run.AudioURL},
		)
	}

	return nil
}

func (r *Runner) upload(ctx context.Context, exec *execution, name string, contentType string, data []byte) (string, error) {
	url, err := r.uploader.Upload(ctx, exec.token, cdn.File{
		Name:        exec.run.ID + "-" + name,
		ContentType: contentType,
		Size:        int64(len(data)),
		Body:        bytes.NewReader(data),
	})
	if err != nil {
		return "", err
	}

	exec.uploaded = append(exec.uploaded, url)
	return url, nil
}

func (r *Runner) enter(ctx context.Context, exec *execution, state State) {
	now := r.now().UTC()
	exec.run.State = state
	exec.run.UpdatedAt = now
	if step := exec.run.step(state); step != nil {
		step.Status = StepRunning
		step.StartedAt = &now
	}
	r.save(ctx, exec.run)
	r.publish(event.TypePipelineStep, exec.run)
}

func (r *Runner) leave(ctx context.Context, exec *execution, state State) {
	now := r.now().UTC()
	exec.run.UpdatedAt = now
	if step := exec.run.step(state); step != nil {
		step.Status = StepDone
		step.FinishedAt = &now
	}
	r.save(ctx, exec.run)
}

func (r *Runner) fail(ctx context.Context, exec *execution, state State, cause error) {
	now := r.now().UTC()
	exec.run.State = StateFailed
	exec.run.FailedStep = state
	exec.run.Error = state.failureMessage()
	exec.run.ErrorDetail = cause.Error()
	exec.run.UpdatedAt = now
	if step := exec.run.step(state); step != nil {
		step.Status = StepFailed
		step.FinishedAt = &now
		step.Error = exec.run.Error
	}

	exec.run.Orphans = r.compensate(exec.uploaded)

	// The run context may be the reason for the failure; record it anyway.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	r.save(saveCtx, exec.run)
	r.publish(event.TypePipelineFailed, exec.run)
}

// compensate returns the uploaded assets that remain after a failure.
func (r *Runner) compensate(uploaded []string) []string {
	if len(uploaded) == 0 {
		return nil
	}

	deleter, ok := r.uploader.(cdn.Deleter)
	if !r.opts.Compensate || !ok {
		return append([]string(nil), uploaded...)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var remaining []string
	for _, url := range uploaded {
		if err := deleter.Delete(ctx, url); err != nil {
			slog.Warn("failed to delete orphaned asset", "url", url, "error", err)
			remaining = append(remaining, url)
		}
	}
	return remaining
}

func (r *Runner) save(ctx context.Context, run Run) {
	if err := r.store.Save(ctx, run); err != nil {
		slog.Error("failed to save pipeline run", "run_id", run.ID, "state", run.State, "error", err)
	}
}

func (r *Runner) publish(eventType event.Type, run Run) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(event.New(eventType, run.CreatedBy, run.Clone()))
}

// voiceProvider honours an explicit choice, else picks the Vietnamese voice
// for Vietnamese narration.
func voiceProvider(req Request) service.VoiceProvider {
	switch service.VoiceProvider(req.VoiceProvider) {
	case service.VoiceVietnamese:
		return service.VoiceVietnamese
	case service.VoiceGeneric:
		return service.VoiceGeneric
	}

	return service.VoiceFor(req.Narration)
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

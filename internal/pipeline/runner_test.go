package pipeline

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"storyteller-admin/internal/cdn"
	"storyteller-admin/internal/event"
	"storyteller-admin/internal/model"
	"storyteller-admin/internal/service"
	"storyteller-admin/pkg/apierror"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Optimize(ctx context.Context, token string, prompt string) (service.OptimizeResult, error) {
	args := m.Called(ctx, token, prompt)
	return args.Get(0).(service.OptimizeResult), args.Error(1)
}

func (m *mockGenerator) Translate(ctx context.Context, token string, text string) (string, error) {
	args := m.Called(ctx, token, text)
	return args.String(0), args.Error(1)
}

func (m *mockGenerator) GenerateImage(ctx context.Context, token string, req model.ImageRequest) (service.Image, error) {
	args := m.Called(ctx, token, req)
	return args.Get(0).(service.Image), args.Error(1)
}

func (m *mockGenerator) Synthesize(ctx context.Context, token string, speech service.Speech) ([]byte, error) {
	args := m.Called(ctx, token, speech)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

type mockStories struct {
	mock.Mock
}

func (m *mockStories) AttachPanelMedia(ctx context.Context, token string, storyID string, target service.PanelTarget, media service.PanelMedia) error {
	return m.Called(ctx, token, storyID, target, media).Error(0)
}

type fakeUploader struct {
	mu      sync.Mutex
	uploads []string
	bodies  map[string]string
}

func (u *fakeUploader) Upload(_ context.Context, _ string, file cdn.File) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	data, _ := io.ReadAll(file.Body)
	if u.bodies == nil {
		u.bodies = map[string]string{}
	}
	url := "https://cdn.example/" + file.Name
	u.uploads = append(u.uploads, url)
	u.bodies[url] = string(data)
	return url, nil
}

type deletingUploader struct {
	fakeUploader
	deleted []string
}

func (u *deletingUploader) Delete(_ context.Context, url string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.deleted = append(u.deleted, url)
	return nil
}

func collectStates(bus *event.InMemoryBus) (func() []State, func()) {
	events, unsubscribe := bus.Subscribe()

	var (
		mu     sync.Mutex
		states []State
		done   = make(chan struct{})
	)
	go func() {
		defer close(done)
		for e := range events {
			run, ok := e.Payload.(Run)
			if !ok {
				continue
			}
			mu.Lock()
			states = append(states, run.State)
			mu.Unlock()
		}
	}()

	stop := func() {
		unsubscribe()
		<-done
	}
	get := func() []State {
		mu.Lock()
		defer mu.Unlock()
		return append([]State(nil), states...)
	}
	return get, stop
}

func TestRunner_FullRun(t *testing.T) {
	gen := new(mockGenerator)
	stories := new(mockStories)
	uploader := &fakeUploader{}
	store := NewMemoryStore(10)
	bus := event.NewBus()
	states, stop := collectStates(bus)

	gen.On("Optimize", mock.Anything, "tok", "a fox in the woods").
		Return(service.OptimizeResult{OptimizedPrompt: "optimized"}, nil)
	gen.On("Translate", mock.Anything, "tok", "optimized").Return("english scene", nil)
	gen.On("GenerateImage", mock.Anything, "tok", model.ImageRequest{Prompt: "english scene"}).
		Return(service.Image{Data: []byte("png"), ContentType: "image/png"}, nil)
	gen.On("Synthesize", mock.Anything, "tok", service.Speech{Text: "Once upon a time.", Provider: service.VoiceGeneric}).
		Return([]byte("mp3"), nil)
	stories.On("AttachPanelMedia", mock.Anything, "tok", "story-1", service.PanelTarget{PanelID: "p-2"}, mock.MatchedBy(func(media service.PanelMedia) bool {
		return media.ImageURL != "" && media.AudioURL != "" && media.Content == "Once upon a time."
	})).Return(nil)

	runner := NewRunner(gen, stories, uploader, store, bus, Options{Timeout: time.Minute})

	run, err := runner.Start(context.Background(), "tok", "admin-1", Request{
		StoryID:       "story-1",
		PanelID:       "p-2",
		Prompt:        "a fox in the woods",
		GenerateImage: true,
		Narration:     "Once upon a time.",
	})
	require.NoError(t, err)
	assert.Equal(t, StatePending, run.State)

	runner.Wait()
	stop()

	final, err := runner.Get(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, StateDone, final.State)
	assert.Equal(t, "optimized", final.OptimizedPrompt)
	assert.Equal(t, "https://cdn.example/"+run.ID+"-panel-image.png", final.ImageURL)
	assert.Equal(t, "https://cdn.example/"+run.ID+"-panel-narration.mp3", final.AudioURL)
	assert.Empty(t, final.Orphans)
	for _, step := range final.Steps {
		assert.Equal(t, StepDone, step.Status, step.State)
	}

	assert.Equal(t, []State{
		StatePending,
		StateOptimizing,
		StateTranslating,
		StateGeneratingImage,
		StateGeneratingAudio,
		StateUploading,
		StatePersisting,
		StateDone,
	}, states())

	assert.Equal(t, "png", uploader.bodies[final.ImageURL])
	assert.Equal(t, "mp3", uploader.bodies[final.AudioURL])
	gen.AssertExpectations(t)
	stories.AssertExpectations(t)
}

func TestRunner_NarrationOnlySkipsImageSteps(t *testing.T) {
	gen := new(mockGenerator)
	stories := new(mockStories)
	runner := NewRunner(gen, stories, &fakeUploader{}, NewMemoryStore(10), event.NewBus(), Options{})

	gen.On("Optimize", mock.Anything, "tok", "prompt").Return(service.OptimizeResult{OptimizedPrompt: "optimized"}, nil)
	gen.On("Synthesize", mock.Anything, "tok", service.Speech{Text: "Ngày xửa ngày xưa.", Provider: service.VoiceVietnamese}).
		Return([]byte("mp3"), nil)
	stories.On("AttachPanelMedia", mock.Anything, "tok", "story-1", mock.Anything, mock.Anything).Return(nil)

	run, err := runner.Start(context.Background(), "tok", "mod-1", Request{
		StoryID:   "story-1",
		Prompt:    "prompt",
		Narration: "Ngày xửa ngày xưa.",
	})
	require.NoError(t, err)
	runner.Wait()

	final, err := runner.Get(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, StateDone, final.State)
	assert.Empty(t, final.ImageURL)
	assert.Equal(t, StepSkipped, final.step(StateTranslating).Status)
	assert.Equal(t, StepSkipped, final.step(StateGeneratingImage).Status)
	assert.Equal(t, StepDone, final.step(StateGeneratingAudio).Status)
	gen.AssertNotCalled(t, "Translate", mock.Anything, mock.Anything, mock.Anything)
	gen.AssertNotCalled(t, "GenerateImage", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunner_PersistFailureKeepsOrphans(t *testing.T) {
	gen := new(mockGenerator)
	stories := new(mockStories)
	uploader := &fakeUploader{}
	runner := NewRunner(gen, stories, uploader, NewMemoryStore(10), event.NewBus(), Options{})

	gen.On("Optimize", mock.Anything, "tok", "prompt").Return(service.OptimizeResult{OptimizedPrompt: "optimized"}, nil)
	gen.On("Translate", mock.Anything, "tok", "optimized").Return("scene", nil)
	gen.On("GenerateImage", mock.Anything, "tok", mock.Anything).
		Return(service.Image{Data: []byte("jpg"), ContentType: "image/jpeg"}, nil)
	stories.On("AttachPanelMedia", mock.Anything, "tok", "story-1", mock.Anything, mock.Anything).
		Return(errors.New("upstream status 409: Conflict"))

	run, err := runner.Start(context.Background(), "tok", "admin-1", Request{StoryID: "story-1", Prompt: "prompt", GenerateImage: true})
	require.NoError(t, err)
	runner.Wait()

	final, err := runner.Get(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, final.State)
	assert.Equal(t, StatePersisting, final.FailedStep)
	assert.Equal(t, "Failed to update story", final.Error)
	assert.Contains(t, final.ErrorDetail, "409")
	assert.Equal(t, []string{"https://cdn.example/" + run.ID + "-panel-image.jpg"}, final.Orphans)
	assert.Equal(t, StepFailed, final.step(StatePersisting).Status)
}

func TestRunner_CompensationDeletesOrphans(t *testing.T) {
	gen := new(mockGenerator)
	stories := new(mockStories)
	uploader := &deletingUploader{}
	runner := NewRunner(gen, stories, uploader, NewMemoryStore(10), event.NewBus(), Options{Compensate: true})

	gen.On("Optimize", mock.Anything, "tok", "prompt").Return(service.OptimizeResult{OptimizedPrompt: "optimized"}, nil)
	gen.On("Synthesize", mock.Anything, "tok", mock.Anything).Return([]byte("mp3"), nil)
	stories.On("AttachPanelMedia", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("boom"))

	run, err := runner.Start(context.Background(), "tok", "admin-1", Request{StoryID: "s", Prompt: "prompt", Narration: "Hello there."})
	require.NoError(t, err)
	runner.Wait()

	final, err := runner.Get(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, final.State)
	assert.Empty(t, final.Orphans)
	assert.Equal(t, uploader.uploads, uploader.deleted)
}

func TestRunner_EarlyFailureHasNoOrphans(t *testing.T) {
	gen := new(mockGenerator)
	runner := NewRunner(gen, new(mockStories), &fakeUploader{}, NewMemoryStore(10), event.NewBus(), Options{})

	gen.On("Optimize", mock.Anything, "tok", "prompt").Return(service.OptimizeResult{}, errors.New("llm down"))

	run, err := runner.Start(context.Background(), "tok", "", Request{StoryID: "s", Prompt: "prompt", GenerateImage: true})
	require.NoError(t, err)
	runner.Wait()

	final, err := runner.Get(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, final.State)
	assert.Equal(t, "Failed to optimize prompt", final.Error)
	assert.Nil(t, final.Orphans)
	assert.Equal(t, StepPending, final.step(StateTranslating).Status)
}

func TestRunner_StartValidation(t *testing.T) {
	runner := NewRunner(new(mockGenerator), new(mockStories), &fakeUploader{}, NewMemoryStore(10), nil, Options{})

	cases := []Request{
		{Prompt: "p", GenerateImage: true},
		{StoryID: "s", GenerateImage: true},
		{StoryID: "s", Prompt: "p"},
		{StoryID: "s", Prompt: "p", Narration: "   "},
	}

	for _, req := range cases {
		_, err := runner.Start(context.Background(), "tok", "", req)
		var apiErr *apierror.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, 400, apiErr.HTTPStatus)
	}
}

func TestRunner_ShutdownCancelsRuns(t *testing.T) {
	gen := new(mockGenerator)
	runner := NewRunner(gen, new(mockStories), &fakeUploader{}, NewMemoryStore(10), nil, Options{})

	started := make(chan struct{})
	gen.On("Optimize", mock.Anything, "tok", "prompt").Run(func(args mock.Arguments) {
		close(started)
		<-args.Get(0).(context.Context).Done()
	}).Return(service.OptimizeResult{}, context.Canceled)

	run, err := runner.Start(context.Background(), "tok", "", Request{StoryID: "s", Prompt: "prompt", GenerateImage: true})
	require.NoError(t, err)
	<-started

	require.NoError(t, runner.Shutdown(context.Background()))

	final, err := runner.Get(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, final.State)

	_, err = runner.Start(context.Background(), "tok", "", Request{StoryID: "s", Prompt: "prompt", GenerateImage: true})
	require.ErrorIs(t, err, ErrRunnerClosed)
}

func TestRunner_StartRacingShutdown(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Optimize", mock.Anything, "tok", "prompt").Return(service.OptimizeResult{}, errors.New("backend down"))
	store := NewMemoryStore(100)
	runner := NewRunner(gen, new(mockStories), &fakeUploader{}, store, nil, Options{})

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		started []string
	)
	release := make(chan struct{})
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-release
			run, err := runner.Start(context.Background(), "tok", "", Request{StoryID: "s", Prompt: "prompt", GenerateImage: true})
			if err != nil {
				assert.ErrorIs(t, err, ErrRunnerClosed)
				return
			}
			mu.Lock()
			started = append(started, run.ID)
			mu.Unlock()
		}()
	}

	close(release)
	require.NoError(t, runner.Shutdown(context.Background()))
	wg.Wait()
	runner.Wait()

	for _, id := range started {
		final, err := runner.Get(context.Background(), id)
		require.NoError(t, err)
		assert.True(t, final.State.Terminal(), "run %s ended in %s", id, final.State)
	}
}

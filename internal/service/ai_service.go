package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"strings"

	_ "golang.org/x/image/webp"

	"storyteller-admin/internal/model"
	"storyteller-admin/internal/textchunk"
	"storyteller-admin/internal/upstream"
)

const (
	optimizeMaxWords       = 400
	translateMaxTokens     = 150
	defaultImageSize       = 1024
	audioContentType       = "audio/mpeg"
	noTextImageInstruction = "Illustration for a children's storybook. Do not include any text, letters, words, captions, logos, watermarks or typography anywhere in the image."
)

type VoiceProvider string

const (
	VoiceGeneric    VoiceProvider = "generic"
	VoiceVietnamese VoiceProvider = "vietnamese"
)

func (p VoiceProvider) path() string {
	if p == VoiceVietnamese {
		return "/viettelAI/tts"
	}
	return "/pollinationai/tts"
}

// VoiceFor picks the Vietnamese provider for Vietnamese text.
func VoiceFor(text string) VoiceProvider {
	if textchunk.DetectLanguage(text) == textchunk.LanguageVietnamese {
		return VoiceVietnamese
	}
	return VoiceGeneric
}

type OptimizeResult struct {
	OptimizedPrompt string             `json:"optimizedPrompt"`
	Language        textchunk.Language `json:"language"`
}

type Image struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
}

// DataURL encodes the image for inline use in the editor.
func (i Image) DataURL() string {
	return "data:" + i.ContentType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

type Speech struct {
	Text     string
	Provider VoiceProvider
	Voice    string
	Speed    float64
}

// AIService runs the individual generation steps against the completion
// backend and the image/TTS providers exposed by the backend.
type AIService struct {
	client         *upstream.Client
	completer      Completer
	maxChunkLength int
}

func NewAIService(client *upstream.Client, completer Completer, maxChunkLength int) *AIService {
	if maxChunkLength <= 0 {
		maxChunkLength = textchunk.DefaultMaxChunkLength
	}
	return &AIService{client: client, completer: completer, maxChunkLength: maxChunkLength}
}

func (s *AIService) Optimize(ctx context.Context, token string, prompt string) (OptimizeResult, error) {
	language := textchunk.DetectLanguage(prompt)

	languageRule := "Write the result in the same language as the user's idea."
	if language == textchunk.LanguageVietnamese {
		languageRule = "Write the result in Vietnamese."
	}

	system := fmt.Sprintf(
		"You help authors of children's stories. Rewrite the user's idea into a clear story prompt "+
			"with a short summary, the main characters and the setting. Keep it under %d words. %s "+
			"Answer with the prompt only.",
		optimizeMaxWords, languageRule,
	)

	text, err := s.completer.Complete(ctx, token, Completion{System: system, User: prompt, Temperature: 0.7})
	if err != nil {
		return OptimizeResult{}, fmt.Errorf("optimize prompt: %w", err)
	}

	return OptimizeResult{OptimizedPrompt: text, Language: language}, nil
}

func (s *AIService) Translate(ctx context.Context, token string, text string) (string, error) {
	system := fmt.Sprintf(
		"Translate the text into English and condense it into a visual scene description "+
			"of at most %d tokens, suitable for an image generation model. Answer with the description only.",
		translateMaxTokens,
	)

	translated, err := s.completer.Complete(ctx, token, Completion{
		System:      system,
		User:        text,
		MaxTokens:   translateMaxTokens * 2,
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("translate text: %w", err)
	}

	return translated, nil
}

type imageUpstreamRequest struct {
	Prompt string `json:"prompt"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Seed   *int64 `json:"seed,omitempty"`
	NoLogo bool   `json:"nologo"`
}

func (s *AIService) GenerateImage(ctx context.Context, token string, req model.ImageRequest) (Image, error) {
	width, height := req.Width, req.Height
	if width == 0 {
		width = defaultImageSize
	}
	if height == 0 {
		height = defaultImageSize
	}

	payload, err := json.Marshal(imageUpstreamRequest{
		Prompt: noTextImageInstruction + " Scene: " + strings.TrimSpace(req.Prompt),
		Width:  width,
		Height: height,
		Seed:   req.Seed,
		NoLogo: true,
	})
	if err != nil {
		return Image{}, fmt.Errorf("encode image request: %w", err)
	}

	resp, err := s.client.Do(ctx, upstream.Request{
		Method:      http.MethodPost,
		Path:        "/pollinationai/generate-image",
		Body:        bytes.NewReader(payload),
		ContentType: "application/json",
		Accept:      "image/*, application/json",
		Token:       token,
	})
	if err != nil {
		return Image{}, fmt.Errorf("generate image: %w", err)
	}

	data, err := imageBytes(resp)
	if err != nil {
		return Image{}, fmt.Errorf("generate image: %w", err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Image{}, fmt.Errorf("generate image: unrecognised image data: %w", err)
	}

	return Image{
		Data:        data,
		ContentType: "image/" + format,
		Width:       cfg.Width,
		Height:      cfg.Height,
	}, nil
}

// imageBytes accepts a binary answer or a JSON answer carrying base64 or a
// data URL under image, base64 or data.
func imageBytes(resp *upstream.Response) ([]byte, error) {
	if !strings.Contains(resp.Header.Get("Content-Type"), "json") {
		return resp.Body, nil
	}

	var payload map[string]any
	if err := resp.JSON(&payload); err != nil {
		return nil, err
	}

	encoded := findString(payload, "image", "base64", "data")
	if encoded == "" {
		return nil, fmt.Errorf("image provider answered without image data")
	}
	if _, after, ok := strings.Cut(encoded, ";base64,"); ok {
		encoded = after
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode base64 image: %w", err)
	}
	return data, nil
}

func findString(payload map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := payload[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case map[string]any:
			if s := findString(v, keys...); s != "" {
				return s
			}
		}
	}
	return ""
}

type ttsUpstreamRequest struct {
	Text  string  `json:"text"`
	Voice string  `json:"voice,omitempty"`
	Speed float64 `json:"speed,omitempty"`
}

// OpenSpeech starts a single TTS call and returns the audio stream with its
// content type. The caller closes the stream.
func (s *AIService) OpenSpeech(ctx context.Context, token string, speech Speech) (io.ReadCloser, string, error) {
	payload, err := json.Marshal(ttsUpstreamRequest{Text: speech.Text, Voice: speech.Voice, Speed: speech.Speed})
	if err != nil {
		return nil, "", fmt.Errorf("encode speech request: %w", err)
	}

	resp, err := s.client.Stream(ctx, upstream.Request{
		Method:      http.MethodPost,
		Path:        speech.Provider.path(),
		Body:        bytes.NewReader(payload),
		ContentType: "application/json",
		Accept:      audioContentType,
		Token:       token,
	})
	if err != nil {
		return nil, "", fmt.Errorf("generate speech: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || strings.Contains(contentType, "octet-stream") {
		contentType = audioContentType
	}

	return resp.Body, contentType, nil
}

// Synthesize runs TTS for text of any length. Text is split into sentence
// chunks which are voiced one after another and concatenated in order.
func (s *AIService) Synthesize(ctx context.Context, token string, speech Speech) ([]byte, error) {
	chunks := textchunk.Split(speech.Text, s.maxChunkLength)

	var audio bytes.Buffer
	sent := 0
	for i, chunk := range chunks {
		if strings.TrimSpace(chunk) == "" {
			continue
		}

		part := speech
		part.Text = strings.TrimSpace(chunk)

		stream, _, err := s.OpenSpeech(ctx, token, part)
		if err != nil {
			return nil, fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
		_, err = io.Copy(&audio, stream)
		stream.Close()
		if err != nil {
			return nil, fmt.Errorf("read speech chunk %d/%d: %w", i+1, len(chunks), err)
		}
		sent++
	}

	if sent == 0 {
		return nil, fmt.Errorf("generate speech: %w", model.ErrInvalidInput)
	}

	slog.Debug("speech synthesized", "chunks", sent, "bytes", audio.Len(), "provider", speech.Provider)
	return audio.Bytes(), nil
}

package handler

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"storyteller-admin/internal/model"
	"storyteller-admin/internal/service"
)

const (
	msgOptimizeFailed  = "Failed to optimize prompt"
	msgTranslateFailed = "Failed to translate text"
	msgImageFailed     = "Failed to generate image"
	msgSpeechFailed    = "Failed to generate speech"
)

// AIHandler exposes each generation step as its own route.
type AIHandler struct {
	service *service.AIService
}

func NewAIHandler(service *service.AIService) *AIHandler {
	return &AIHandler{service: service}
}

func (h *AIHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	token, ok := sessionToken(w, r)
	if !ok {
		return
	}

	var payload model.OptimizeRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.service.Optimize(r.Context(), token, payload.Prompt)
	if err != nil {
		writeStepError(w, err, msgOptimizeFailed)
		return
	}

	writeSuccess(w, http.StatusOK, "", result)
}

type translationData struct {
	TranslatedText string `json:"translatedText"`
}

func (h *AIHandler) Translate(w http.ResponseWriter, r *http.Request) {
	token, ok := sessionToken(w, r)
	if !ok {
		return
	}

	var payload model.TranslateRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	text, err := h.service.Translate(r.Context(), token, payload.Text)
	if err != nil {
		writeStepError(w, err, msgTranslateFailed)
		return
	}

	writeSuccess(w, http.StatusOK, "", translationData{TranslatedText: text})
}

type imageData struct {
	Image       string `json:"image"`
	ContentType string `json:"contentType"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
}

// GenerateImage answers with a data URL, or the raw image for output=binary.
func (h *AIHandler) GenerateImage(w http.ResponseWriter, r *http.Request) {
	token, ok := sessionToken(w, r)
	if !ok {
		return
	}

	var payload model.ImageRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	img, err := h.service.GenerateImage(r.Context(), token, payload)
	if err != nil {
		writeStepError(w, err, msgImageFailed)
		return
	}

	if payload.Output == "binary" {
		writeBinary(w, img.ContentType, img.Data)
		return
	}

	writeSuccess(w, http.StatusOK, "", imageData{
		Image:       img.DataURL(),
		ContentType: img.ContentType,
		Width:       img.Width,
		Height:      img.Height,
	})
}

func (h *AIHandler) TTS(w http.ResponseWriter, r *http.Request) {
	h.streamSpeech(w, r, service.VoiceGeneric)
}

func (h *AIHandler) TTSVietnamese(w http.ResponseWriter, r *http.Request) {
	h.streamSpeech(w, r, service.VoiceVietnamese)
}

func (h *AIHandler) streamSpeech(w http.ResponseWriter, r *http.Request, provider service.VoiceProvider) {
	token, ok := sessionToken(w, r)
	if !ok {
		return
	}

	var payload model.TTSRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	stream, contentType, err := h.service.OpenSpeech(r.Context(), token, service.Speech{
		Text:     payload.Text,
		Provider: provider,
		Voice:    payload.Voice,
		Speed:    payload.Speed,
	})
	if err != nil {
		writeStepError(w, err, msgSpeechFailed)
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, stream); err != nil {
		slog.Warn("speech stream interrupted", "provider", provider, "error", err)
	}
}

// TTSLong voices text of any length as one concatenated MPEG body. Without an
// explicit provider the Vietnamese voice is used for Vietnamese text.
func (h *AIHandler) TTSLong(w http.ResponseWriter, r *http.Request) {
	token, ok := sessionToken(w, r)
	if !ok {
		return
	}

	var payload model.LongTTSRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	provider := service.VoiceProvider(payload.Provider)
	if provider == "" {
		provider = service.VoiceFor(payload.Text)
	}

	audio, err := h.service.Synthesize(r.Context(), token, service.Speech{
		Text:     payload.Text,
		Provider: provider,
		Voice:    payload.Voice,
		Speed:    payload.Speed,
	})
	if err != nil {
		writeStepError(w, err, msgSpeechFailed)
		return
	}

	writeBinary(w, "audio/mpeg", audio)
}

func writeBinary(w http.ResponseWriter, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

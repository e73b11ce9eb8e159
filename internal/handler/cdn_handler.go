package handler

import (
	"errors"
	"net/http"

	"storyteller-admin/internal/cdn"
	"storyteller-admin/pkg/apierror"
)

const (
	msgUploadFailed      = "Failed to upload file"
	multipartMemoryBytes = 8 << 20
)

type CDNHandler struct {
	uploader      cdn.Uploader
	maxUploadSize int64
}

func NewCDNHandler(uploader cdn.Uploader, maxUploadSize int64) *CDNHandler {
	return &CDNHandler{uploader: uploader, maxUploadSize: maxUploadSize}
}

type uploadData struct {
	URL string `json:"url"`
}

// Upload stores the multipart "file" field and returns its public URL.
func (h *CDNHandler) Upload(w http.ResponseWriter, r *http.Request) {
	token, ok := sessionToken(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(multipartMemoryBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, apierror.New("File too large", maxErr.Limit, http.StatusRequestEntityTooLarge))
			return
		}
		writeError(w, apierror.BadRequest("Invalid multipart form", err.Error()))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, apierror.BadRequest("File is required", "file"))
		return
	}
	defer file.Close()

	name, err := cdn.SanitizeFilename(header.Filename)
	if err != nil {
		writeError(w, err)
		return
	}

	url, err := h.uploader.Upload(r.Context(), token, cdn.File{
		Name:        name,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		writeStepError(w, err, msgUploadFailed)
		return
	}

	writeSuccess(w, http.StatusOK, "File uploaded successfully", uploadData{URL: url})
}

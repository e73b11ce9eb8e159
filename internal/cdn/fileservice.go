package cdn

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"storyteller-admin/internal/upstream"
)

const uploadPath = "/Files/upload"

// FileServiceUploader posts assets to the external file service as a
// multipart "file" field and reads the stored URL from the answer.
type FileServiceUploader struct {
	client *upstream.Client
}

func NewFileServiceUploader(client *upstream.Client) *FileServiceUploader {
	return &FileServiceUploader{client: client}
}

func (u *FileServiceUploader) Upload(ctx context.Context, token string, file File) (string, error) {
	if file.Body == nil {
		return "", fmt.Errorf("upload: empty file")
	}

	name := strings.TrimSpace(file.Name)
	if name == "" {
		name = "upload"
	}
	contentType := contentTypeOf(file)

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)

	go func() {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(name)))
		header.Set("Content-Type", contentType)

		part, err := form.CreatePart(header)
		if err == nil {
			_, err = io.Copy(part, file.Body)
		}
		if err == nil {
			err = form.Close()
		}
		pw.CloseWithError(err)
	}()

	resp, err := u.client.Do(ctx, upstream.Request{
		Method:      http.MethodPost,
		Path:        uploadPath,
		Body:        pr,
		ContentType: form.FormDataContentType(),
		Token:       token,
	})
	// Unblock the writer goroutine if the request ended before reading the body.
	_ = pr.CloseWithError(io.ErrClosedPipe)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}

	var payload map[string]any
	if err := resp.JSON(&payload); err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}

	url := urlFrom(payload)
	if url == "" {
		return "", fmt.Errorf("upload %s: file service answered without a url", name)
	}

	return url, nil
}

// urlFrom accepts {url}, {data: {url}} and {data: "<url>"} answers.
func urlFrom(payload map[string]any) string {
	for _, key := range []string{"url", "Url", "fileUrl"} {
		if s, ok := payload[key].(string); ok && s != "" {
			return s
		}
	}

	switch data := payload["data"].(type) {
	case string:
		return data
	case map[string]any:
		return urlFrom(data)
	}

	return ""
}

func escapeQuotes(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

// Package cdn stores generated and uploaded story assets and returns their
// public URL.
package cdn

import (
	"context"
	"io"
	"mime"
	"path"
	"strings"
)

type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

type Uploader interface {
	Upload(ctx context.Context, token string, file File) (string, error)
}

// Deleter is implemented by backends that can remove an asset they stored.
type Deleter interface {
	Delete(ctx context.Context, url string) error
}

// contentTypeOf prefers the declared type, then the file extension.
func contentTypeOf(file File) string {
	if ct := strings.TrimSpace(file.ContentType); ct != "" {
		return ct
	}
	if byExt := mime.TypeByExtension(strings.ToLower(path.Ext(file.Name))); byExt != "" {
		return byExt
	}
	return "application/octet-stream"
}

// extensionOf keeps the original extension, or derives one from the type.
func extensionOf(file File, contentType string) string {
	if ext := strings.ToLower(path.Ext(file.Name)); ext != "" {
		return ext
	}

	switch strings.TrimSpace(strings.Split(contentType, ";")[0]) {
	case "audio/mpeg":
		return ".mp3"
	case "image/jpeg":
		return ".jpg"
	}

	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}

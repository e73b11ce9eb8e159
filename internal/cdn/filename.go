package cdn

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"storyteller-admin/pkg/apierror"
)

const maxFilenameRunes = 255

var invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// SanitizeFilename makes a client-supplied upload name safe to forward as a
// multipart filename or object key suffix. The result is NFC-normalized.
func SanitizeFilename(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", apierror.BadRequest("Invalid filename", "filename cannot be empty")
	}

	// Browsers may send a full client path.
	if idx := strings.LastIndexAny(trimmed, `/\`); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}

	var b strings.Builder
	b.Grow(len(trimmed))
	for _, r := range norm.NFC.String(trimmed) {
		if unicode.IsControl(r) || unicode.Is(unicode.Cf, r) {
			continue
		}
		b.WriteRune(r)
	}

	cleaned := strings.TrimSpace(invalidFilenameChars.ReplaceAllString(b.String(), "_"))
	cleaned = strings.TrimLeft(cleaned, ".")
	if cleaned == "" {
		return "", apierror.BadRequest("Invalid filename", "filename is empty after sanitization")
	}

	if runes := []rune(cleaned); len(runes) > maxFilenameRunes {
		cleaned = string(runes[:maxFilenameRunes])
	}

	return cleaned, nil
}

package media

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// DefaultExtension is used for artifacts whose original name carries no extension.
const DefaultExtension = ".mp4"

// SniffLen is how many leading bytes Sniff needs to classify a stream.
const SniffLen = 3072

var (
	ErrUnsupportedFormat = errors.New("only video files allowed")
	ErrUnrecognizedVideo = errors.New("uploaded content is not a video")
)

// Validator gates uploads by file extension and, optionally, by sniffed content.
type Validator struct {
	allowed map[string]struct{}
	sniff   bool
}

// NewValidator builds a validator from an extension allow-list such as [".mp4", ".webm"].
func NewValidator(allowedExtensions []string, sniff bool) *Validator {
	allowed := make(map[string]struct{}, len(allowedExtensions))
	for _, ext := range allowedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = struct{}{}
	}
	return &Validator{allowed: allowed, sniff: sniff}
}

// Validate returns the lower-cased extension of filename if it is allowed.
func (v *Validator) Validate(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := v.allowed[ext]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return ext, nil
}

// SniffEnabled reports whether content sniffing is configured.
func (v *Validator) SniffEnabled() bool {
	return v.sniff
}

// Sniff checks the leading bytes of an upload. Content that cannot be classified at all
// is let through; anything recognized as a non-video type is rejected.
func (v *Validator) Sniff(header []byte) error {
	mt := mimetype.Detect(header)
	if strings.HasPrefix(mt.String(), "video/") || mt.Is("application/octet-stream") {
		return nil
	}
	return fmt.Errorf("%w: detected %s", ErrUnrecognizedVideo, mt.String())
}

// Namer derives storage names for accepted uploads.
type Namer struct {
	now func() time.Time
}

func NewNamer() *Namer {
	return &Namer{now: time.Now}
}

// Name combines a nanosecond timestamp with a random suffix, so two calls within the
// same clock tick still produce different names. Only ext comes from the client.
func (n *Namer) Name(ext string) string {
	ext = strings.ToLower(ext)
	if ext == "" || strings.ContainsAny(ext, `/\`) {
		ext = DefaultExtension
	}
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("%d-%s%s", n.now().UnixNano(), suffix, ext)
}

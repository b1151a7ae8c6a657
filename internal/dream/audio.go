package dream

import (
	"path/filepath"
	"strings"

	"dreamshare/pkg/errors"
)

const defaultAudioMaxMB = 10

var allowedAudioExtensions = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".m4a":  true,
	".ogg":  true,
	".webm": true,
	".flac": true,
}

// AudioValidator enforces the size ceiling and extension allowlist on
// uploaded recordings.
type AudioValidator struct {
	MaxBytes int64
}

func NewAudioValidator(maxMB int) *AudioValidator {
	if maxMB <= 0 {
		maxMB = defaultAudioMaxMB
	}
	return &AudioValidator{MaxBytes: int64(maxMB) * 1024 * 1024}
}

// Validate checks the upload before any capability runs. Size is checked
// first so oversized files are rejected regardless of their name.
func (v *AudioValidator) Validate(filename string, size int64) error {
	if size <= 0 {
		return errors.New("audio file is empty")
	}
	if size > v.MaxBytes {
		return errors.Errorf("audio file exceeds the %d MB limit", v.MaxBytes/(1024*1024))
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedAudioExtensions[ext] {
		return errors.Errorf("unsupported audio format %q, expected one of %s", ext, allowedExtensionList())
	}
	return nil
}

func allowedExtensionList() string {
	return strings.Join([]string{".wav", ".mp3", ".m4a", ".ogg", ".webm", ".flac"}, ", ")
}

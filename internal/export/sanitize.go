package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// ErrInvalidOutputDir is wrapped by every ValidateOutputDir failure.
var ErrInvalidOutputDir = errors.New("invalid output_dir")

// SanitizeName turns s into a file base name. Control characters are
// dropped, whitespace and anything outside letters, digits, '-', '_' and
// '.' become '_', and the result is cut to maxLen runes.
func SanitizeName(s string, maxLen int) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case unicode.IsControl(r):
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	cleaned := strings.TrimLeft(b.String(), ".")
	if maxLen > 0 {
		if runes := []rune(cleaned); len(runes) > maxLen {
			cleaned = string(runes[:maxLen])
		}
	}
	return cleaned
}

// ValidateOutputDir requires an existing, clean, absolute directory path
// without traversal.
func ValidateOutputDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return fmt.Errorf("%w: output_dir is required", ErrInvalidOutputDir)
	}
	for _, part := range strings.Split(filepath.ToSlash(dir), "/") {
		if part == ".." {
			return fmt.Errorf("%w: path traversal is not allowed", ErrInvalidOutputDir)
		}
	}
	if !filepath.IsAbs(dir) {
		return fmt.Errorf("%w: path must be absolute", ErrInvalidOutputDir)
	}
	if filepath.Clean(dir) != dir {
		return fmt.Errorf("%w: path must be clean", ErrInvalidOutputDir)
	}

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: directory does not exist", ErrInvalidOutputDir)
		}
		return fmt.Errorf("%w: %v", ErrInvalidOutputDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: not a directory", ErrInvalidOutputDir)
	}
	return nil
}

package export

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"control chars", " A\nB\rC\tD\x00 ", 100, "ABCD"},
		{"allowed chars", "Az09-_.", 100, "Az09-_."},
		{"spaces and punctuation", "ep 01 (final)", 100, "ep_01__final_"},
		{"disallowed", "bad<>|\"name", 100, "bad____name"},
		{"leading dots", "..hidden", 100, "hidden"},
		{"max length", "abcdefghijklmnopqrstuvwxyz", 10, "abcdefghij"},
		{"unicode letters", "エピソード", 3, "エピソ"},
		{"empty", "   ", 100, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeName(tt.input, tt.maxLen)
			if got != tt.want {
				t.Errorf("SanitizeName(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if strings.ContainsAny(got, "\n\r\t\x00/") {
				t.Errorf("SanitizeName(%q) kept unsafe characters: %q", tt.input, got)
			}
		})
	}
}

func TestValidateOutputDir(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"valid", dir, false},
		{"empty", "  ", true},
		{"relative", "exports", true},
		{"traversal", "/tmp/../etc", true},
		{"unclean", dir + "/", true},
		{"missing", filepath.Join(dir, "missing"), true},
		{"not a directory", file, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutputDir(tt.path)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidOutputDir) {
					t.Errorf("ValidateOutputDir(%q) error = %v, want ErrInvalidOutputDir", tt.path, err)
				}
				return
			}
			if err != nil {
				t.Errorf("ValidateOutputDir(%q) error = %v, want nil", tt.path, err)
			}
		})
	}
}

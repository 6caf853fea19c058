package framerange

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		spec      string
		n         int
		wantFirst int
		wantLast  int
		wantErr   error
	}{
		{"full range", "0-999", 1000, 0, 999, nil},
		{"open end", "500-", 1000, 500, 999, nil},
		{"last frames", "-500", 1000, 500, 999, nil},
		{"single frame", "42", 1000, 42, 42, nil},
		{"one frame span", "0-0", 1000, 0, 0, nil},
		{"spaces", " 10-20 ", 1000, 10, 20, nil},
		{"end clamped", "0-2000", 1000, 0, 999, nil},
		{"suffix longer than clip", "-2000", 500, 0, 499, nil},

		{"start past end of clip", "1000-", 1000, 0, 0, ErrUnsatisfiable},
		{"reversed", "20-10", 1000, 0, 0, ErrUnsatisfiable},
		{"single past end", "1000", 1000, 0, 0, ErrUnsatisfiable},
		{"empty clip", "0-1", 0, 0, 0, ErrUnsatisfiable},
		{"empty", "", 1000, 0, 0, ErrInvalidRange},
		{"words", "abc", 1000, 0, 0, ErrInvalidRange},
		{"bad start", "a-10", 1000, 0, 0, ErrInvalidRange},
		{"bad end", "0-b", 1000, 0, 0, ErrInvalidRange},
		{"zero suffix", "-0", 1000, 0, 0, ErrInvalidRange},
		{"two dashes", "1-2-3", 1000, 0, 0, ErrInvalidRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.spec, tt.n)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Parse() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() unexpected error: %v", err)
			}
			if got.First != tt.wantFirst || got.Last != tt.wantLast {
				t.Errorf("Parse() = %v, want %d-%d", got, tt.wantFirst, tt.wantLast)
			}
		})
	}
}

func TestRange_Len(t *testing.T) {
	r := Range{First: 10, Last: 19}
	if r.Len() != 10 {
		t.Errorf("Len() = %d, want 10", r.Len())
	}
	if r.String() != "10-19" {
		t.Errorf("String() = %q, want 10-19", r.String())
	}
}

package pipelines

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/heimdex/ivtc-agent/internal/project"
)

const maxRecordBytes = 64 * 1024

var ErrRecordOrder = errors.New("metrics records out of order")

// FeedOptions controls how metrics records are applied.
type FeedOptions struct {
	// FadesThreshold is the field difference above which a frame is
	// recorded as an interlaced fade. Zero disables fade detection.
	FadesThreshold float64
}

// FeedStats summarises an applied metrics stream.
type FeedStats struct {
	Frames       int `json:"frames"`
	Combed       int `json:"combed"`
	SceneChanges int `json:"scene_changes"`
	Dropped      int `json:"dropped"`
	Fades        int `json:"fades"`
}

// FeedFile applies the JSONL metrics file at path to p.
func FeedFile(ctx context.Context, path string, p *project.Project, opts FeedOptions) (FeedStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return FeedStats{}, fmt.Errorf("open metrics: %w", err)
	}
	defer f.Close()
	return Feed(ctx, f, p, opts)
}

// Feed applies frame records from r to p. Frames must be strictly
// increasing and inside the project. When the stream carried matches they
// become the project's working matches at the end.
func Feed(ctx context.Context, r io.Reader, p *project.Project, opts FeedOptions) (FeedStats, error) {
	var stats FeedStats
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxRecordBytes)

	last := -1
	sawMatch := false
	line := 0
	for scanner.Scan() {
		line++
		if line%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
		}
		if len(scanner.Bytes()) == 0 {
			continue
		}

		var rec FrameRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return stats, fmt.Errorf("line %d: %w", line, err)
		}
		if rec.Frame <= last {
			return stats, fmt.Errorf("line %d: frame %d after frame %d: %w", line, rec.Frame, last, ErrRecordOrder)
		}
		last = rec.Frame

		if err := applyRecord(p, rec, opts, &stats); err != nil {
			return stats, fmt.Errorf("line %d: %w", line, err)
		}
		if rec.Match != "" {
			sawMatch = true
		}
		stats.Frames++
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("read metrics: %w", err)
	}

	if sawMatch {
		if err := p.ResetRangeMatches(0, p.SourceFrameCount()-1); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func applyRecord(p *project.Project, rec FrameRecord, opts FeedOptions, stats *FeedStats) error {
	f := rec.Frame
	if rec.Match != "" {
		if len(rec.Match) != 1 {
			return fmt.Errorf("frame %d: invalid match %q", f, rec.Match)
		}
		if err := p.SetOriginalMatch(f, rec.Match[0]); err != nil {
			return err
		}
	}
	if rec.Combed != nil && *rec.Combed {
		if err := p.AddCombedFrame(f); err != nil {
			return err
		}
		stats.Combed++
	}
	if rec.Mics != nil {
		if err := p.SetMics(f, *rec.Mics); err != nil {
			return err
		}
	}
	if rec.MMetrics != nil {
		if err := p.SetMMetrics(f, *rec.MMetrics); err != nil {
			return err
		}
	}
	if rec.VMetrics != nil {
		if err := p.SetVMetrics(f, *rec.VMetrics); err != nil {
			return err
		}
	}
	if rec.DecimateMetric != nil {
		if err := p.SetDecimateMetric(f, *rec.DecimateMetric); err != nil {
			return err
		}
	}
	if rec.Drop != nil && *rec.Drop {
		if err := p.AddDecimated(f); err != nil {
			return err
		}
		stats.Dropped++
	}
	if rec.SceneChange != nil && *rec.SceneChange && f > 0 {
		if err := p.AddSection(f); err != nil {
			return err
		}
		stats.SceneChanges++
	}
	if rec.FieldDifference != nil && opts.FadesThreshold > 0 && *rec.FieldDifference > opts.FadesThreshold {
		if err := p.AddInterlacedFade(f, *rec.FieldDifference); err != nil {
			return err
		}
		stats.Fades++
	}
	return nil
}

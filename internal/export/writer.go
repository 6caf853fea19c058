package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/heimdex/ivtc-agent/internal/project"
)

const maxNameLength = 120

var ErrUnknownOutput = errors.New("unknown output")

// DefaultOutputs is used when a request names no outputs.
var DefaultOutputs = []string{OutputScript, OutputTimecodes, OutputKeyframes}

// BaseName derives an output base name from a project path.
func BaseName(projectPath string) string {
	name := filepath.Base(projectPath)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if name = SanitizeName(name, maxNameLength); name == "" {
		return "ivtc_export"
	}
	return name
}

// Render generates the text of one output kind.
func Render(p *project.Project, output string, opts ScriptOptions) (string, error) {
	switch output {
	case OutputScript:
		return GenerateScript(p, opts)
	case OutputDisplayScript:
		return GenerateDisplayScript(p), nil
	case OutputTimecodes:
		return GenerateTimecodesV1(p), nil
	case OutputKeyframes:
		return GenerateKeyframesV1(p), nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownOutput, output)
	}
}

// WriteOutputs renders every requested output of p into req.OutputDir.
// Nothing is written unless every output renders.
func WriteOutputs(p *project.Project, req ExportRequest) (*ExportResponse, error) {
	if err := ValidateOutputDir(req.OutputDir); err != nil {
		return nil, err
	}

	name := SanitizeName(req.Name, maxNameLength)
	if name == "" {
		name = "ivtc_export"
	}

	opts := ScriptOptions{SaveSourceNode: req.SaveSourceNode}
	if req.Decimation != "" {
		fn, err := ParseDecimationFunction(req.Decimation)
		if err != nil {
			return nil, err
		}
		opts.Decimation = fn
	}

	outputs := req.Outputs
	if len(outputs) == 0 {
		outputs = DefaultOutputs
	}

	rendered := make(map[string]string, len(outputs))
	for _, output := range outputs {
		text, err := Render(p, output, opts)
		if err != nil {
			return nil, err
		}
		rendered[output] = text
	}

	resp := &ExportResponse{Status: "ok"}
	for _, output := range outputs {
		path := filepath.Join(req.OutputDir, name+outputExtensions[output])
		if err := os.WriteFile(path, []byte(rendered[output]), 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", output, err)
		}
		resp.Files = append(resp.Files, path)
	}
	return resp, nil
}

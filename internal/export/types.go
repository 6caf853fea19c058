package export

// Output kinds accepted in ExportRequest.Outputs.
const (
	OutputScript        = "script"
	OutputDisplayScript = "display-script"
	OutputTimecodes     = "timecodes"
	OutputKeyframes     = "keyframes"
)

var outputExtensions = map[string]string{
	OutputScript:        ".vpy",
	OutputDisplayScript: ".display.vpy",
	OutputTimecodes:     ".timecodes.txt",
	OutputKeyframes:     ".keyframes.txt",
}

type ExportRequest struct {
	OutputDir      string   `json:"output_dir"`
	Name           string   `json:"name"`
	Outputs        []string `json:"outputs"`
	Decimation     string   `json:"decimation"`
	SaveSourceNode bool     `json:"save_source_node"`
}

type ExportResponse struct {
	Status string   `json:"status"`
	Files  []string `json:"files"`
}

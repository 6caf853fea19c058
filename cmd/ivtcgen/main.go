// Command ivtcgen writes scripts, timecodes and keyframes for project files
// without starting the agent.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/heimdex/ivtc-agent/internal/config"
	"github.com/heimdex/ivtc-agent/internal/export"
	"github.com/heimdex/ivtc-agent/internal/logging"
	"github.com/heimdex/ivtc-agent/internal/project"
)

type options struct {
	outputs    []string
	decimation string
	jobs       int
}

func main() {
	var (
		scriptFlag     = flag.Bool("script", false, "Write the VapourSynth script")
		timecodesFlag  = flag.Bool("timecodes", false, "Write v1 timecodes")
		keyframesFlag  = flag.Bool("keyframes", false, "Write v1 keyframes")
		decimationFlag = flag.String("decimation", "auto", "Decimation function: auto, deleteframes or selectevery")
		jobsFlag       = flag.Int("j", 0, "Projects processed at once (default: IVTC_BATCH_CONCURRENCY or CPU count)")
		verboseFlag    = flag.Bool("v", false, "Log every written file")
	)
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: ivtcgen [-script] [-timecodes] [-keyframes] [-decimation name] [-j N] project.json...")
		fmt.Fprintln(os.Stderr, "With no output flags every output is written.")
		fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
		os.Exit(2)
	}

	level := "info"
	if *verboseFlag {
		level = "debug"
	}
	logger := logging.New(os.Stderr, level)

	opts := options{decimation: *decimationFlag, jobs: *jobsFlag}
	if *scriptFlag {
		opts.outputs = append(opts.outputs, export.OutputScript)
	}
	if *timecodesFlag {
		opts.outputs = append(opts.outputs, export.OutputTimecodes)
	}
	if *keyframesFlag {
		opts.outputs = append(opts.outputs, export.OutputKeyframes)
	}
	if opts.jobs <= 0 {
		opts.jobs = defaultJobs(logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	failed, err := generate(ctx, flag.Args(), opts, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if failed > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d projects failed\n", failed, flag.NArg())
		os.Exit(1)
	}
}

func defaultJobs(logger *slog.Logger) int {
	cfg, err := config.New()
	if err != nil {
		logger.Warn("ignoring agent config", "error", err)
	} else if n := cfg.BatchConcurrency(); n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// generate writes the outputs of every project beside its document. A
// project that fails is logged and counted; the rest still run.
func generate(ctx context.Context, paths []string, opts options, logger *slog.Logger) (int, error) {
	if _, err := export.ParseDecimationFunction(opts.decimation); err != nil {
		return 0, err
	}

	var failed atomic.Int32
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.jobs, 1))

	for _, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			files, err := generateOne(path, opts)
			if err != nil {
				logger.Error("project failed", "path", logging.SanitizePath(path), "error", err)
				failed.Add(1)
				return nil
			}
			for _, f := range files {
				logger.Debug("wrote output", "path", logging.SanitizePath(f))
			}
			logger.Info("project done", "path", logging.SanitizePath(path), "files", len(files))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return int(failed.Load()), err
	}
	return int(failed.Load()), nil
}

func generateOne(path string, opts options) ([]string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	p, err := project.Read(abs)
	if err != nil {
		return nil, err
	}
	resp, err := export.WriteOutputs(p, export.ExportRequest{
		OutputDir:  filepath.Dir(abs),
		Name:       export.BaseName(abs),
		Outputs:    opts.outputs,
		Decimation: opts.decimation,
	})
	if err != nil {
		return nil, err
	}
	return resp.Files, nil
}

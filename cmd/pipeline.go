package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/andresmejia3/signspell/internal/capture"
	"github.com/andresmejia3/signspell/internal/classifier"
	"github.com/andresmejia3/signspell/internal/pipeline"
	"github.com/andresmejia3/signspell/internal/worker"
)

var defaultModelNames = map[string]string{
	"onnx":   "letter_classifier.onnx",
	"python": "letter_classifier.ptl",
}

// validateOptions checks the capture and model flags and fills in derived defaults.
func validateOptions(o *Options) error {
	defaultName, ok := defaultModelNames[o.Backend]
	if !ok {
		return fmt.Errorf("unknown backend %q (use onnx or python)", o.Backend)
	}
	if o.ModelName == "" {
		o.ModelName = defaultName
	}
	if o.ModelDir == "" {
		cache, err := os.UserCacheDir()
		if err != nil {
			return fmt.Errorf("no --model-dir given and no user cache dir: %w", err)
		}
		o.ModelDir = filepath.Join(cache, "signspell", "models")
	}

	if o.Input == "" {
		return fmt.Errorf("--input is required")
	}
	switch o.Device {
	case "file":
		if _, err := os.Stat(o.Input); err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("input %s does not exist", o.Input)
			}
			return fmt.Errorf("unable to access input: %w", err)
		}
	case "ffmpeg":
	default:
		return fmt.Errorf("unknown device %q (use file or ffmpeg)", o.Device)
	}

	o.Rotation = ((o.Rotation % 360) + 360) % 360
	if o.Rotation%90 != 0 {
		return fmt.Errorf("rotation must be a multiple of 90, got %d", o.Rotation)
	}
	if o.PoolSize < 1 {
		return fmt.Errorf("pool-size must be >= 1, got %d", o.PoolSize)
	}
	if _, err := time.ParseDuration(o.CaptureTimeout); err != nil {
		return fmt.Errorf("invalid capture-timeout format (use '10s', '500ms'): %w", err)
	}
	if _, err := time.ParseDuration(o.WorkerTimeout); err != nil {
		return fmt.Errorf("invalid worker-timeout format (use '30s'): %w", err)
	}
	return nil
}

func buildDevice(o Options) (capture.Device, error) {
	if o.Device == "ffmpeg" {
		return capture.NewFFmpegDevice(o.InputFormat, o.Input, o.Rotation, o.PoolSize), nil
	}
	paths, err := capture.ListImages(o.Input)
	if err != nil {
		return nil, err
	}
	dev, err := capture.NewFileDevice(paths, o.Rotation, o.PoolSize)
	if err != nil {
		return nil, err
	}
	return dev, nil
}

// buildClassifier copies the bundled model once and loads it with the chosen backend.
func buildClassifier(ctx context.Context, o Options) (classifier.Classifier, error) {
	modelPath, err := classifier.ArtifactPath(os.DirFS(o.BundleDir), o.ModelName, o.ModelDir)
	if err != nil {
		return nil, err
	}

	if o.Backend == "python" {
		timeout, _ := time.ParseDuration(o.WorkerTimeout)
		w, err := worker.NewPythonWorker(ctx, 0, worker.Config{
			Script:      o.WorkerScript,
			ModelPath:   modelPath,
			ReadTimeout: timeout,
		})
		if err != nil {
			return nil, err
		}
		return w, nil
	}
	m, err := classifier.NewONNX(classifier.ONNXConfig{
		ModelPath:          modelPath,
		OnnxRuntimeLibPath: o.OnnxRuntimeLib,
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// buildPipeline wires device, bridge and classifier. The caller must Close the returned classifier.
func buildPipeline(ctx context.Context, o Options) (*pipeline.Pipeline, classifier.Classifier, error) {
	if err := validateOptions(&o); err != nil {
		return nil, nil, err
	}

	device, err := buildDevice(o)
	if err != nil {
		return nil, nil, fmt.Errorf("capture device: %w", err)
	}

	fmt.Fprintf(os.Stderr, "🧠 Loading %s model %s...\n", o.Backend, o.ModelName)
	model, err := buildClassifier(ctx, o)
	if err != nil {
		return nil, nil, err
	}

	timeout, _ := time.ParseDuration(o.CaptureTimeout)
	var popts []pipeline.Option
	if o.DebugFrames != "" {
		popts = append(popts, pipeline.WithDebugFrames(o.DebugFrames))
	}
	p := pipeline.New(capture.NewBridge(device, timeout), model, popts...)
	return p, model, nil
}

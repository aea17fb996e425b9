package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/andresmejia3/signspell/internal/capture"
	"github.com/andresmejia3/signspell/internal/store"
	"github.com/andresmejia3/signspell/internal/utils"
	ort "github.com/getcharzp/onnxruntime_purego"
	"github.com/spf13/cobra"
)

// Options holds shared configuration for the interpret and spell commands
type Options struct {
	User           string
	Backend        string
	ModelName      string
	BundleDir      string
	ModelDir       string
	OnnxRuntimeLib string
	WorkerScript   string
	WorkerTimeout  string
	Device         string
	Input          string
	InputFormat    string
	Rotation       int
	CaptureTimeout string
	PoolSize       int
	DebugFrames    string
	Speak          bool
	Notify         bool
}

var (
	// DB is the global database connection shared by subcommands
	DB *store.Store
	// dbURL is the connection string
	dbURL string
	// opts is filled from persistent flags
	opts Options
)

// Version is the application version.
const Version = "0.1.0"

// skipDB marks commands that never touch the database.
const skipDB = "skip-db"

var rootCmd = &cobra.Command{
	Use:     "signspell",
	Short:   "Hand-sign letter classifier and spelling quiz",
	Version: Version, // This enables the --version flag
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Annotations[skipDB] == "true" {
			return nil
		}

		// If no flag was provided, try to build the connection string from the environment
		if dbURL == "" {
			dbURL = dbURLFromEnv()
		}

		// Initialize DB connection
		var err error
		// Use the command's context (which will be cancellable) for the connection
		DB, err = store.New(cmd.Context(), dbURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := DB.EnsureUser(cmd.Context(), opts.User); err != nil {
			return fmt.Errorf("failed to prepare profile %q: %w", opts.User, err)
		}
		return DB.SeedQuestions(cmd.Context(), store.DefaultQuestions)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if DB != nil {
			// Use Background here because the main context might be cancelled already (due to Ctrl+C)
			// and we still need to send the "Close" command to the DB.
			DB.Close(context.Background())
		}
	},
}

func dbURLFromEnv() string {
	if host := os.Getenv("POSTGRES_HOST"); host != "" {
		user := os.Getenv("POSTGRES_USER")
		pass := os.Getenv("POSTGRES_PASSWORD")
		name := os.Getenv("POSTGRES_DB")
		port := utils.EnvOrDefault("POSTGRES_PORT", "5432")
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", user, pass, host, port, name)
	}
	// Fallback to local default if no env vars are present
	return "postgres://localhost:5432/signspell"
}

func Execute() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// This tells Cobra not to print the version in the help text, which is cleaner.
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dbURL, "db", "", "PostgreSQL connection string (default: postgres://localhost:5432/signspell)")
	pf.StringVarP(&opts.User, "user", "u", utils.EnvOrDefault("SIGNSPELL_USER", "Guest"), "Profile that stats are recorded for")

	pf.StringVar(&opts.Backend, "backend", "onnx", "Inference backend: onnx or python")
	pf.StringVar(&opts.ModelName, "model", "", "Model artifact name inside the bundle dir (default depends on backend)")
	pf.StringVar(&opts.BundleDir, "bundle-dir", utils.EnvOrDefault("SIGNSPELL_BUNDLE_DIR", "models"), "Read-only directory holding the bundled model")
	pf.StringVar(&opts.ModelDir, "model-dir", "", "Writable directory the model is copied into (default: user cache dir)")
	pf.StringVar(&opts.OnnxRuntimeLib, "onnxruntime-lib", utils.EnvOrDefault("ONNXRUNTIME_LIB", ort.DefaultLibraryPath()), "Path to the ONNX Runtime shared library")
	pf.StringVar(&opts.WorkerScript, "worker-script", "python/classifier_worker.py", "Python worker script for the python backend")
	pf.StringVar(&opts.WorkerTimeout, "worker-timeout", "30s", "Maximum time to wait for a python worker response")

	pf.StringVar(&opts.Device, "device", "file", "Capture device: file or ffmpeg")
	pf.StringVarP(&opts.Input, "input", "i", "", "Image file/dir for the file device, or ffmpeg input (e.g. /dev/video0)")
	pf.StringVar(&opts.InputFormat, "input-format", "v4l2", "ffmpeg input format (empty lets ffmpeg detect it)")
	pf.IntVar(&opts.Rotation, "rotation", 0, "Clockwise degrees to rotate captures upright (0, 90, 180, 270)")
	pf.StringVar(&opts.CaptureTimeout, "capture-timeout", "10s", "Maximum time to wait for a capture (0 waits forever)")
	pf.IntVar(&opts.PoolSize, "pool-size", capture.DefaultPoolSize, "Maximum captures the device holds at once")
	pf.StringVarP(&opts.DebugFrames, "debug-frames", "d", "", "Save every upright capture to this directory")

	pf.BoolVar(&opts.Speak, "speak", false, "Read results aloud with espeak")
	pf.BoolVar(&opts.Notify, "notify", false, "Show desktop notifications")
}

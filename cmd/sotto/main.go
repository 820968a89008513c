package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/soren/sotto/internal/app"
	"github.com/soren/sotto/internal/config"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

const usage = `sotto - streaming speech to text

Usage:
  sotto [flags]                     Transcribe from the microphone
  sotto replay [flags] <file.wav>   Transcribe a recording
  sotto devices                     List capture devices
  sotto models <command>            Manage speech models
  sotto version                     Show version information

Model commands:
  sotto models list                 Show the model catalog
  sotto models downloaded           Show downloaded models
  sotto models pull <name>          Download a model
  sotto models default <name>       Set the default model

Run 'sotto [command] -h' for command flags.
`

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "replay":
			exitOn(runReplay(os.Args[2:]))
			return
		case "devices":
			exitOn(app.ListDevices(os.Stdout))
			return
		case "models":
			exitOn(runModels(os.Args[2:]))
			return
		case "version":
			printVersion()
			return
		case "help", "-h", "-help", "--help":
			fmt.Print(usage)
			return
		}
	}
	exitOn(runLive(os.Args[1:]))
}

func exitOn(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("sotto v%s\n", Version)
	fmt.Printf("  Commit:  %s\n", GitCommit)
	fmt.Printf("  Branch:  %s\n", GitBranch)
	fmt.Printf("  Built:   %s\n", BuildTime)
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadConfig reads the config file and layers explicitly-set flags on
// top of it.
func loadConfig(path string) *config.Config {
	cfg, err := config.LoadWithFallback(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		cfg = config.DefaultConfig()
	}
	return cfg
}

func runLive(args []string) error {
	fs := flag.NewFlagSet("sotto", flag.ExitOnError)
	configFile := fs.String("config", "", "Path to configuration file (default: ~/.sottorc or /etc/sotto/config.yaml)")
	backend := fs.String("backend", "", "Transcription backend: whisper, vosk, openai, stub")
	model := fs.String("model", "", "Model name or file path (default: the configured default model)")
	device := fs.String("device", "", "Capture device id or name (see 'sotto devices')")
	mode := fs.String("mode", "", "Reconciliation mode: standard, eager")
	language := fs.String("language", "", "Decode language code, e.g. en (default: auto-detect)")
	task := fs.String("task", "", "Decode task: transcribe, translate")
	format := fs.String("format", "console", "Output format: console, json, text")
	outputFile := fs.String("output", "", "Write transcript records to a file")
	hotkey := fs.String("hotkey", "", "Push-to-talk combo, e.g. ctrl+shift+space (default: transcribe continuously)")
	hold := fs.Bool("hold", false, "Hold the hotkey to talk instead of toggling")
	preserve := fs.Bool("preserve-text", false, "Carry display text across push-to-talk sessions")
	vad := fs.Bool("vad", true, "Skip silent audio instead of transcribing it")
	lineBreaks := fs.Bool("line-breaks", false, "Insert a newline after each sentence")
	verbose := fs.Bool("verbose", false, "Enable debug logging")
	showVersion := fs.Bool("version", false, "Show version information")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *showVersion {
		printVersion()
		return nil
	}

	cfg := loadConfig(*configFile)
	set := flagsSet(fs)
	if set["backend"] {
		cfg.Model.Backend = *backend
	}
	if set["model"] {
		cfg.Model.Path = *model
	}
	if set["mode"] {
		cfg.Stream.Mode = *mode
	}
	if set["language"] {
		cfg.Model.Language = *language
	}
	if set["task"] {
		cfg.Model.Task = *task
	}
	if set["vad"] {
		cfg.VAD.Enabled = *vad
	}
	if set["preserve-text"] {
		cfg.Stream.PreserveText = *preserve
	}
	if set["line-breaks"] {
		cfg.Output.LineBreaks = *lineBreaks
	}
	if !set["device"] && cfg.Audio.Device != "" {
		*device = cfg.Audio.Device
	}
	if !set["format"] && cfg.Output.Format != "" {
		*format = cfg.Output.Format
	}
	if !set["output"] && cfg.Output.File != "" {
		*outputFile = cfg.Output.File
	}

	logger := newLogger(*verbose)
	backendImpl, err := app.NewBackend(cfg, logger)
	if err != nil {
		return err
	}
	defer backendImpl.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := app.LiveOptions{
		Device:     *device,
		Hotkey:     *hotkey,
		HotkeyHold: *hold,
		Format:     *format,
		OutputFile: *outputFile,
	}
	return app.RunLive(ctx, cfg, opts, backendImpl, logger)
}

func runReplay(args []string) error {
	fs := flag.NewFlagSet("sotto replay", flag.ExitOnError)
	configFile := fs.String("config", "", "Path to configuration file")
	backend := fs.String("backend", "", "Transcription backend: whisper, vosk, openai, stub")
	model := fs.String("model", "", "Model name or file path")
	mode := fs.String("mode", "", "Reconciliation mode: standard, eager")
	language := fs.String("language", "", "Decode language code (default: auto-detect)")
	task := fs.String("task", "", "Decode task: transcribe, translate")
	format := fs.String("format", "console", "Output format: console, json, text")
	outputFile := fs.String("output", "", "Write transcript records to a file")
	speed := fs.Float64("speed", 0, "Replay pace: 1 is real time, 0 is as fast as possible")
	vad := fs.Bool("vad", true, "Skip silent audio instead of transcribing it")
	lineBreaks := fs.Bool("line-breaks", false, "Insert a newline after each sentence")
	verbose := fs.Bool("verbose", false, "Enable debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() != 1 {
		return fmt.Errorf("usage: sotto replay [flags] <file.wav>")
	}

	cfg := loadConfig(*configFile)
	set := flagsSet(fs)
	if set["backend"] {
		cfg.Model.Backend = *backend
	}
	if set["model"] {
		cfg.Model.Path = *model
	}
	if set["mode"] {
		cfg.Stream.Mode = *mode
	}
	if set["language"] {
		cfg.Model.Language = *language
	}
	if set["task"] {
		cfg.Model.Task = *task
	}
	if set["vad"] {
		cfg.VAD.Enabled = *vad
	}
	if set["line-breaks"] {
		cfg.Output.LineBreaks = *lineBreaks
	}

	logger := newLogger(*verbose)
	backendImpl, err := app.NewBackend(cfg, logger)
	if err != nil {
		return err
	}
	defer backendImpl.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := app.ReplayOptions{
		Path:       fs.Arg(0),
		Speed:      *speed,
		Format:     *format,
		OutputFile: *outputFile,
	}
	return app.RunReplay(ctx, cfg, opts, backendImpl, logger)
}

func runModels(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: sotto models <list|downloaded|pull <name>|default <name>>")
	}

	switch args[0] {
	case "list":
		return app.ListModels(os.Stdout)
	case "downloaded":
		return app.ListDownloaded(os.Stdout)
	case "pull":
		if len(args) != 2 {
			return fmt.Errorf("usage: sotto models pull <name>")
		}
		return app.PullModel(os.Stdout, args[1])
	case "default":
		if len(args) != 2 {
			return fmt.Errorf("usage: sotto models default <name>")
		}
		return app.SetDefault(os.Stdout, args[1])
	default:
		return fmt.Errorf("unknown models command %q (valid: list, downloaded, pull, default)", args[0])
	}
}

func flagsSet(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	return set
}

package app

import (
	"fmt"
	"io"

	"github.com/soren/sotto/internal/models"
)

// ListModels prints the model catalog with download status.
func ListModels(w io.Writer) error {
	defaultModel, err := models.GetDefaultModel()
	if err != nil {
		return fmt.Errorf("read default model: %w", err)
	}

	fmt.Fprintln(w, "Available models:")
	fmt.Fprintln(w)
	for i, model := range models.AvailableModels {
		fmt.Fprintf(w, "%d. %s\n", i+1, model.Name)
		fmt.Fprintf(w, "   Backend:  %s\n", model.Backend)
		fmt.Fprintf(w, "   Language: %s\n", model.Language)
		fmt.Fprintf(w, "   Size:     %s\n", model.Size)
		fmt.Fprintf(w, "   Info:     %s\n", model.Description)

		downloaded, _ := models.IsModelDownloaded(model.Name)
		switch {
		case downloaded && model.Name == defaultModel:
			fmt.Fprintf(w, "   Status:   downloaded [default]\n")
		case downloaded:
			fmt.Fprintf(w, "   Status:   downloaded\n")
		case model.Name == defaultModel:
			fmt.Fprintf(w, "   Status:   not downloaded [default]\n")
		default:
			fmt.Fprintf(w, "   Status:   not downloaded\n")
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "Download a model with: sotto models pull <name>")
	return nil
}

// ListDownloaded prints the models present in the models directory.
func ListDownloaded(w io.Writer) error {
	downloaded, err := models.ListDownloadedModels()
	if err != nil {
		return fmt.Errorf("list downloaded models: %w", err)
	}

	if len(downloaded) == 0 {
		fmt.Fprintln(w, "No models downloaded yet.")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Use 'sotto models list' to see what is available.")
		return nil
	}

	defaultModel, _ := models.GetDefaultModel()

	fmt.Fprintf(w, "Downloaded models (%d):\n", len(downloaded))
	for i, name := range downloaded {
		fmt.Fprintf(w, "%d. %s", i+1, name)
		if name == defaultModel {
			fmt.Fprintf(w, " [default]")
		}
		fmt.Fprintln(w)

		if path, err := models.GetModelPath(name); err == nil {
			fmt.Fprintf(w, "   Path: %s\n", path)
		}
	}
	return nil
}

// PullModel downloads a model by name, printing progress to w.
func PullModel(w io.Writer, name string) error {
	model := models.FindModel(name)
	if model == nil {
		return fmt.Errorf("unknown model %q; use 'sotto models list' to see what is available", name)
	}

	downloaded, err := models.IsModelDownloaded(name)
	if err != nil {
		return fmt.Errorf("check model: %w", err)
	}
	if downloaded {
		path, _ := models.GetModelPath(name)
		fmt.Fprintf(w, "Model %s is already downloaded.\n", name)
		fmt.Fprintf(w, "Location: %s\n", path)
		return nil
	}

	fmt.Fprintf(w, "Downloading %s (%s, %s)\n", model.Name, model.Backend, model.Size)

	err = models.DownloadModel(name, func(done, total int64) {
		if total > 0 {
			fmt.Fprintf(w, "\r%.1f%% (%d/%d bytes)", float64(done)/float64(total)*100, done, total)
		} else {
			fmt.Fprintf(w, "\r%d bytes", done)
		}
	})
	if err != nil {
		fmt.Fprintln(w)
		return fmt.Errorf("download model: %w", err)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Model %s downloaded.\n", name)
	return nil
}

// SetDefault marks a model as the default for backends that need one.
func SetDefault(w io.Writer, name string) error {
	if err := models.SetDefaultModel(name); err != nil {
		return err
	}
	fmt.Fprintf(w, "Default model set to %s.\n", name)
	return nil
}

package models

import (
	"archive/zip"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Model describes a downloadable transcription model. Whisper models
// are single ggml files; vosk models are zip archives that unpack to a
// directory.
type Model struct {
	Name        string
	Backend     string
	Language    string
	Size        string
	URL         string
	Description string
}

// Available models.
var AvailableModels = []Model{
	{
		Name:        "ggml-tiny.en.bin",
		Backend:     "whisper",
		Language:    "en",
		Size:        "75M",
		URL:         "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-tiny.en.bin",
		Description: "Smallest English model, fastest, lowest accuracy",
	},
	{
		Name:        "ggml-base.en.bin",
		Backend:     "whisper",
		Language:    "en",
		Size:        "142M",
		URL:         "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-base.en.bin",
		Description: "Small English model, good speed/accuracy balance",
	},
	{
		Name:        "ggml-base.bin",
		Backend:     "whisper",
		Language:    "multilingual",
		Size:        "142M",
		URL:         "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-base.bin",
		Description: "Small multilingual model",
	},
	{
		Name:        "ggml-small.en.bin",
		Backend:     "whisper",
		Language:    "en",
		Size:        "466M",
		URL:         "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-small.en.bin",
		Description: "Medium English model, slower but more accurate",
	},
	{
		Name:        "ggml-large-v3-turbo.bin",
		Backend:     "whisper",
		Language:    "multilingual",
		Size:        "1.6G",
		URL:         "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-large-v3-turbo.bin",
		Description: "Large multilingual model, best accuracy",
	},
	{
		Name:        "vosk-model-small-en-us-0.15",
		Backend:     "vosk",
		Language:    "en-US",
		Size:        "40M",
		URL:         "https://alphacephei.com/vosk/models/vosk-model-small-en-us-0.15.zip",
		Description: "Lightweight English vosk model, fast but less accurate",
	},
	{
		Name:        "vosk-model-en-us-0.22-lgraph",
		Backend:     "vosk",
		Language:    "en-US",
		Size:        "128M",
		URL:         "https://alphacephei.com/vosk/models/vosk-model-en-us-0.22-lgraph.zip",
		Description: "Medium English vosk model, balanced speed and accuracy",
	},
}

// DefaultModelName is the default model to use
const DefaultModelName = "ggml-base.en.bin"

// GetModelsDir returns the directory where models are stored.
// SOTTO_MODELS_DIR overrides the default under the home directory.
func GetModelsDir() (string, error) {
	if dir := os.Getenv("SOTTO_MODELS_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return filepath.Join(home, ".sotto", "models"), nil
}

// GetDefaultModel returns the configured default model name.
// If no custom default is set, returns DefaultModelName.
func GetDefaultModel() (string, error) {
	modelsDir, err := GetModelsDir()
	if err != nil {
		return DefaultModelName, err
	}

	configFile := filepath.Join(modelsDir, ".default_model")
	data, err := os.ReadFile(configFile)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultModelName, nil
		}
		return DefaultModelName, err
	}

	modelName := strings.TrimSpace(string(data))
	if modelName == "" {
		return DefaultModelName, nil
	}

	return modelName, nil
}

// SetDefaultModel sets the default model to use
func SetDefaultModel(modelName string) error {
	model := FindModel(modelName)
	if model == nil {
		return fmt.Errorf("unknown model: %s", modelName)
	}

	modelsDir, err := GetModelsDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(modelsDir, 0755); err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}

	configFile := filepath.Join(modelsDir, ".default_model")
	err = os.WriteFile(configFile, []byte(modelName), 0644)
	if err != nil {
		return fmt.Errorf("failed to save default model: %w", err)
	}

	return nil
}

// IsModelDownloaded checks if a model is already downloaded. Whisper
// models are files, vosk models are directories.
func IsModelDownloaded(modelName string) (bool, error) {
	modelsDir, err := GetModelsDir()
	if err != nil {
		return false, err
	}

	info, err := os.Stat(filepath.Join(modelsDir, modelName))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if model := FindModel(modelName); model != nil && model.Backend == "vosk" {
		return info.IsDir(), nil
	}
	return !info.IsDir(), nil
}

// GetModelPath returns the path to a downloaded model
func GetModelPath(modelName string) (string, error) {
	modelsDir, err := GetModelsDir()
	if err != nil {
		return "", err
	}

	downloaded, err := IsModelDownloaded(modelName)
	if err != nil {
		return "", err
	}
	if !downloaded {
		return "", fmt.Errorf("model not found: %s (run 'sotto models pull %s')", modelName, modelName)
	}

	return filepath.Join(modelsDir, modelName), nil
}

// FindModel finds a model by name in the available models list
func FindModel(name string) *Model {
	for _, model := range AvailableModels {
		if model.Name == name {
			return &model
		}
	}
	return nil
}

// ModelsForBackend returns the catalog entries for one backend.
func ModelsForBackend(backend string) []Model {
	var out []Model
	for _, model := range AvailableModels {
		if model.Backend == backend {
			out = append(out, model)
		}
	}
	return out
}

// DownloadModel downloads a model into the models directory. Vosk
// archives are unpacked; whisper files land as-is.
func DownloadModel(modelName string, progress func(downloaded, total int64)) error {
	model := FindModel(modelName)
	if model == nil {
		return fmt.Errorf("unknown model: %s", modelName)
	}

	modelsDir, err := GetModelsDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(modelsDir, 0755); err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}

	tmpPath := filepath.Join(modelsDir, modelName+".download")
	defer os.Remove(tmpPath)

	if err := downloadFile(model.URL, tmpPath, progress); err != nil {
		return err
	}

	if model.Backend == "vosk" {
		if err := extractZip(tmpPath, modelsDir); err != nil {
			return fmt.Errorf("failed to extract model: %w", err)
		}
		return nil
	}

	if err := os.Rename(tmpPath, filepath.Join(modelsDir, modelName)); err != nil {
		return fmt.Errorf("failed to place model file: %w", err)
	}
	return nil
}

func downloadFile(url, dest string, progress func(downloaded, total int64)) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to download model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status: %s", resp.Status)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer out.Close()

	total := resp.ContentLength
	var downloaded int64

	buf := make([]byte, 32*1024)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				return fmt.Errorf("failed to write file: %w", writeErr)
			}
			downloaded += int64(n)
			if progress != nil {
				progress(downloaded, total)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("download error: %w", err)
		}
	}

	return nil
}

// extractZip extracts a zip file to the specified directory
func extractZip(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		fpath := filepath.Join(destDir, f.Name)

		// Check for ZipSlip vulnerability
		if !strings.HasPrefix(fpath, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("illegal file path: %s", fpath)
		}

		if f.FileInfo().IsDir() {
			os.MkdirAll(fpath, os.ModePerm)
			continue
		}

		if err := os.MkdirAll(filepath.Dir(fpath), os.ModePerm); err != nil {
			return err
		}

		outFile, err := os.OpenFile(fpath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
		if err != nil {
			return err
		}

		rc, err := f.Open()
		if err != nil {
			outFile.Close()
			return err
		}

		_, err = io.Copy(outFile, rc)
		outFile.Close()
		rc.Close()

		if err != nil {
			return err
		}
	}

	return nil
}

// ListDownloadedModels lists all downloaded models
func ListDownloadedModels() ([]string, error) {
	modelsDir, err := GetModelsDir()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(modelsDir); os.IsNotExist(err) {
		return []string{}, nil
	}

	entries, err := os.ReadDir(modelsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read models directory: %w", err)
	}

	var models []string
	for _, entry := range entries {
		name := entry.Name()
		switch {
		case entry.IsDir() && strings.HasPrefix(name, "vosk-model-"):
			models = append(models, name)
		case !entry.IsDir() && strings.HasPrefix(name, "ggml-") && strings.HasSuffix(name, ".bin"):
			models = append(models, name)
		}
	}

	return models, nil
}

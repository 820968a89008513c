package models

import (
	"archive/zip"
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestFindModel(t *testing.T) {
	if m := FindModel("ggml-base.en.bin"); m == nil || m.Backend != "whisper" {
		t.Fatalf("FindModel(ggml-base.en.bin) = %+v", m)
	}
	if m := FindModel("vosk-model-small-en-us-0.15"); m == nil || m.Backend != "vosk" {
		t.Fatalf("FindModel(vosk small) = %+v", m)
	}
	if m := FindModel("no-such-model"); m != nil {
		t.Fatalf("FindModel(no-such-model) = %+v, want nil", m)
	}
}

func TestModelsForBackend(t *testing.T) {
	for _, m := range ModelsForBackend("whisper") {
		if m.Backend != "whisper" {
			t.Errorf("whisper list contains %s (%s)", m.Name, m.Backend)
		}
	}
	if len(ModelsForBackend("vosk")) == 0 {
		t.Error("no vosk models in catalog")
	}
}

func TestDefaultModelRoundTrip(t *testing.T) {
	t.Setenv("SOTTO_MODELS_DIR", t.TempDir())

	name, err := GetDefaultModel()
	if err != nil {
		t.Fatal(err)
	}
	if name != DefaultModelName {
		t.Fatalf("default = %q, want %q with no config", name, DefaultModelName)
	}

	if err := SetDefaultModel("ggml-tiny.en.bin"); err != nil {
		t.Fatal(err)
	}
	name, err = GetDefaultModel()
	if err != nil {
		t.Fatal(err)
	}
	if name != "ggml-tiny.en.bin" {
		t.Fatalf("default = %q after set", name)
	}

	if err := SetDefaultModel("no-such-model"); err == nil {
		t.Error("unknown model accepted as default")
	}
}

func TestIsModelDownloaded(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SOTTO_MODELS_DIR", dir)

	ok, err := IsModelDownloaded("ggml-base.en.bin")
	if err != nil || ok {
		t.Fatalf("missing model reported downloaded (%v, %v)", ok, err)
	}

	// A whisper model is a plain file.
	if err := os.WriteFile(filepath.Join(dir, "ggml-base.en.bin"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if ok, _ := IsModelDownloaded("ggml-base.en.bin"); !ok {
		t.Error("whisper model file not detected")
	}

	// A vosk model must be a directory; a stray file is not enough.
	if err := os.WriteFile(filepath.Join(dir, "vosk-model-small-en-us-0.15"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if ok, _ := IsModelDownloaded("vosk-model-small-en-us-0.15"); ok {
		t.Error("vosk model accepted as a file")
	}
}

func TestListDownloadedModels(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SOTTO_MODELS_DIR", dir)

	if err := os.WriteFile(filepath.Join(dir, "ggml-base.en.bin"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "vosk-model-small-en-us-0.15"), 0755); err != nil {
		t.Fatal(err)
	}
	// Noise that must not be listed.
	if err := os.WriteFile(filepath.Join(dir, ".default_model"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	listed, err := ListDownloadedModels()
	if err != nil {
		t.Fatal(err)
	}
	if len(listed) != 2 {
		t.Fatalf("listed %v, want the ggml file and the vosk dir", listed)
	}
}

func TestDownloadWhisperModel(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SOTTO_MODELS_DIR", dir)

	payload := bytes.Repeat([]byte("model-bytes "), 100)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	// Point a catalog entry at the test server.
	orig := AvailableModels
	t.Cleanup(func() { AvailableModels = orig })
	AvailableModels = []Model{{
		Name:    "ggml-test.bin",
		Backend: "whisper",
		URL:     srv.URL,
	}}

	var calls int
	var last int64
	err := DownloadModel("ggml-test.bin", func(downloaded, total int64) {
		calls++
		last = downloaded
	})
	if err != nil {
		t.Fatal(err)
	}
	if calls == 0 || last != int64(len(payload)) {
		t.Errorf("progress calls=%d last=%d, want final byte count %d", calls, last, len(payload))
	}

	got, err := os.ReadFile(filepath.Join(dir, "ggml-test.bin"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("downloaded file differs from served payload")
	}
}

func TestDownloadVoskModelExtracts(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SOTTO_MODELS_DIR", dir)

	var zipBuf bytes.Buffer
	zw := zip.NewWriter(&zipBuf)
	f, err := zw.Create("vosk-model-test/am/final.mdl")
	if err != nil {
		t.Fatal(err)
	}
	f.Write([]byte("acoustic model"))
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(zipBuf.Bytes())
	}))
	defer srv.Close()

	orig := AvailableModels
	t.Cleanup(func() { AvailableModels = orig })
	AvailableModels = []Model{{
		Name:    "vosk-model-test",
		Backend: "vosk",
		URL:     srv.URL,
	}}

	if err := DownloadModel("vosk-model-test", nil); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "vosk-model-test", "am", "final.mdl"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "acoustic model" {
		t.Errorf("extracted content %q", data)
	}
	// The archive itself is cleaned up.
	if _, err := os.Stat(filepath.Join(dir, "vosk-model-test.download")); !os.IsNotExist(err) {
		t.Error("temporary download not removed")
	}
}

func TestExtractZipRejectsTraversal(t *testing.T) {
	dir := t.TempDir()

	var zipBuf bytes.Buffer
	zw := zip.NewWriter(&zipBuf)
	f, err := zw.Create("../escape.txt")
	if err != nil {
		t.Fatal(err)
	}
	f.Write([]byte("nope"))
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	zipPath := filepath.Join(dir, "evil.zip")
	if err := os.WriteFile(zipPath, zipBuf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	dest := filepath.Join(dir, "dest")
	if err := os.Mkdir(dest, 0755); err != nil {
		t.Fatal(err)
	}
	if err := extractZip(zipPath, dest); err == nil {
		t.Fatal("zip path traversal not rejected")
	}
}

func TestDownloadUnknownModel(t *testing.T) {
	if err := DownloadModel("no-such-model", nil); err == nil {
		t.Fatal("unknown model accepted")
	}
}

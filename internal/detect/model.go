package detect

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"pdf-layout-translator/internal/logger"
)

const (
	// ModelURL is the published ONNX export of DocLayout-YOLO trained on
	// DocStructBench.
	ModelURL = "https://huggingface.co/wybxc/DocLayout-YOLO-DocStructBench-onnx/resolve/main/doclayout_yolo_docstructbench_imgsz1024.onnx"
	// downloadTimeout bounds the model download; the file is ~40MB.
	downloadTimeout = 300 * time.Second
	// maxDownloadRetries is the number of attempts for network errors.
	maxDownloadRetries = 3
	// baseRetryDelay grows linearly with the attempt number.
	baseRetryDelay = 2 * time.Second
)

// EnsureModel downloads the detection model to path if it is not already
// present. The download goes to a temp file first and is renamed into
// place, so a partial download never passes for a model.
func EnsureModel(path string) error {
	if _, err := os.Stat(path); err == nil {
		logger.Debug("detection model already present", logger.String("path", path))
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("detect: create model directory: %w", err)
	}

	logger.Info("downloading layout detection model",
		logger.String("url", ModelURL), logger.String("destination", path))

	client := &http.Client{Timeout: downloadTimeout}
	var lastErr error
	for attempt := 1; attempt <= maxDownloadRetries; attempt++ {
		if err := downloadTo(client, ModelURL, path); err != nil {
			lastErr = err
			logger.Warn("model download attempt failed",
				logger.Int("attempt", attempt), logger.Err(err))
			if attempt < maxDownloadRetries {
				time.Sleep(baseRetryDelay * time.Duration(attempt))
			}
			continue
		}
		logger.Info("detection model downloaded", logger.String("path", path))
		return nil
	}
	return fmt.Errorf("detect: model download failed after %d attempts: %w",
		maxDownloadRetries, lastErr)
}

func downloadTo(client *http.Client, url, path string) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".model-*.onnx")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

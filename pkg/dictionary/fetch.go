package dictionary

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/japaniel/goodthings/pkg/apperr"
)

// EnsureSystemDictionary makes sure a kagome system dictionary exists at path.
// When it is missing and url is set, the archive is downloaded. A .tar.gz or
// .tgz archive is unpacked down to its first .zip member; anything else is
// stored as is. The bundled IPA dictionary needs no file.
func EnsureSystemDictionary(ctx context.Context, path, url string, logger *slog.Logger) error {
	if path == "" || path == BuiltinSystemDictionary {
		return nil
	}
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return apperr.Configurationf("dictionary.system", "stat %s: %v", path, err)
	}
	if url == "" {
		return apperr.Configurationf("dictionary.system", "system dictionary %s not found and no download url configured", path)
	}
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("system dictionary missing, downloading", "path", path, "url", url)
	if err := download(ctx, url, path); err != nil {
		return apperr.Transient("system dictionary download", err)
	}
	return nil
}

func download(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "goodthings-cli")

	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed: %s", resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}
	// Write next to the destination and rename, so a failed download never
	// leaves a truncated dictionary behind.
	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".download-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	var src io.Reader = resp.Body
	if strings.HasSuffix(url, ".tar.gz") || strings.HasSuffix(url, ".tgz") {
		member, closeFn, err := zipMember(resp.Body)
		if err != nil {
			tmp.Close()
			return err
		}
		defer closeFn()
		src = member
	}

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return fmt.Errorf("write dictionary: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), destPath)
}

// zipMember positions a tar.gz stream at its first .zip entry.
func zipMember(r io.Reader) (io.Reader, func() error, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open gzip stream: %w", err)
	}
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			gz.Close()
			return nil, nil, errors.New("no .zip dictionary found in archive")
		}
		if err != nil {
			gz.Close()
			return nil, nil, fmt.Errorf("read tar archive: %w", err)
		}
		if hdr.Typeflag == tar.TypeReg && strings.HasSuffix(hdr.Name, ".zip") {
			return tr, gz.Close, nil
		}
	}
}

// Package download fetches, verifies, and extracts UMLS full-release
// archives from the UTS API.
package download

import (
	"archive/zip"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/yungbote/umls-graph-syncer/internal/platform/logger"
)

const (
	releaseAPIURL  = "https://uts-ws.nlm.nih.gov/releases"
	downloadAPIURL = "https://uts-ws.nlm.nih.gov/download"
)

// Downloader resolves a named UMLS release, downloads its archive with the
// caller's API key, verifies the published md5, and extracts it. Fetch is
// idempotent: an already-extracted release is reused.
type Downloader struct {
	apiKey     string
	dir        string
	httpClient *http.Client
	log        *logger.Logger

	// API endpoints, overridable in tests.
	releaseURL  string
	downloadURL string
}

func New(apiKey, dir string, log *logger.Logger) *Downloader {
	return &Downloader{
		apiKey:      apiKey,
		dir:         dir,
		httpClient:  &http.Client{Timeout: 30 * time.Minute},
		log:         log.With("component", "downloader"),
		releaseURL:  releaseAPIURL,
		downloadURL: downloadAPIURL,
	}
}

type releaseInfo struct {
	Name        string `json:"name"`
	DownloadURL string `json:"downloadUrl"`
	MD5         string `json:"md5"`
}

type releaseListResponse struct {
	Result []releaseInfo `json:"result"`
}

// Fetch returns the META directory for the named release, downloading and
// extracting it first when needed.
func (d *Downloader) Fetch(ctx context.Context, version string) (string, error) {
	versionDir := filepath.Join(d.dir, version)
	metaDir := filepath.Join(versionDir, "META")
	if info, err := os.Stat(metaDir); err == nil && info.IsDir() {
		d.log.Info("release already extracted, skipping download", "version", version, "meta_dir", metaDir)
		return metaDir, nil
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", fmt.Errorf("download: create dir: %w", err)
	}

	rel, err := d.releaseInfo(ctx, version)
	if err != nil {
		return "", err
	}

	zipName := path.Base(rel.DownloadURL)
	zipPath := filepath.Join(d.dir, zipName)
	d.log.Info("downloading release archive", "version", version, "file", zipName)
	if err := d.downloadFile(ctx, rel.DownloadURL, zipPath); err != nil {
		return "", err
	}

	if rel.MD5 != "" {
		actual, err := fileMD5(zipPath)
		if err != nil {
			return "", fmt.Errorf("download: checksum %s: %w", zipName, err)
		}
		if !strings.EqualFold(actual, rel.MD5) {
			return "", fmt.Errorf("download: checksum mismatch for %s: expected %s, got %s", zipName, rel.MD5, actual)
		}
		d.log.Info("checksum verified", "file", zipName)
	} else {
		d.log.Warn("release metadata carries no md5, skipping verification", "file", zipName)
	}

	d.log.Info("extracting archive", "file", zipName, "dest", versionDir)
	if err := extractZip(zipPath, versionDir); err != nil {
		return "", fmt.Errorf("download: extract %s: %w", zipName, err)
	}
	if err := os.Remove(zipPath); err != nil {
		d.log.Warn("could not remove archive after extraction", "file", zipPath, "error", err)
	}

	if info, err := os.Stat(metaDir); err != nil || !info.IsDir() {
		return "", fmt.Errorf("download: extracted release has no META directory at %s", metaDir)
	}
	return metaDir, nil
}

func (d *Downloader) releaseInfo(ctx context.Context, version string) (releaseInfo, error) {
	u, _ := url.Parse(d.releaseURL)
	q := u.Query()
	q.Set("releaseType", "umls-full-release")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return releaseInfo{}, fmt.Errorf("download: release lookup: %w", err)
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return releaseInfo{}, fmt.Errorf("download: release lookup: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return releaseInfo{}, fmt.Errorf("download: release lookup: unexpected status %s", resp.Status)
	}

	var list releaseListResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return releaseInfo{}, fmt.Errorf("download: decode release list: %w", err)
	}
	if len(list.Result) == 0 {
		return releaseInfo{}, fmt.Errorf("download: no full releases listed by the UTS API")
	}
	names := make([]string, 0, len(list.Result))
	for _, rel := range list.Result {
		if rel.Name == version {
			return rel, nil
		}
		names = append(names, rel.Name)
	}
	return releaseInfo{}, fmt.Errorf("download: release %q not found; available: %s", version, strings.Join(names, ", "))
}

func (d *Downloader) downloadFile(ctx context.Context, downloadURL, dest string) error {
	u, _ := url.Parse(d.downloadURL)
	q := u.Query()
	q.Set("url", downloadURL)
	q.Set("apiKey", d.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download: unexpected status %s", resp.Status)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		return fmt.Errorf("download: write %s: %w", dest, err)
	}
	return f.Close()
}

func fileMD5(p string) (string, error) {
	f, err := os.Open(p)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func extractZip(zipPath, dest string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, zf := range r.File {
		target := filepath.Join(dest, zf.Name)
		// Reject entries that would escape the destination directory.
		if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
			return fmt.Errorf("illegal path in archive: %s", zf.Name)
		}
		if zf.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := extractZipFile(zf, target); err != nil {
			return err
		}
	}
	return nil
}

func extractZipFile(zf *zip.File, target string) error {
	src, err := zf.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := os.Create(target)
	if err != nil {
		return err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return err
	}
	return dst.Close()
}

package speech

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// URLPrefix is the public path audio files are served under.
const URLPrefix = "/audio/"

// FileStore manages synthesized audio artifacts on local disk. Files are
// content-addressed by uuid name and reclaimed after their TTL.
type FileStore struct {
	dir string
	ttl time.Duration
}

func NewFileStore(dir string, ttl time.Duration) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		dir = filepath.Join(os.TempDir(), "backtoback_audio")
	}
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audio dir: %w", err)
	}
	return &FileStore{dir: dir, ttl: ttl}, nil
}

func (s *FileStore) Dir() string { return s.dir }

// Save writes one audio artifact and returns its public URL path.
func (s *FileStore) Save(filename string, r io.Reader) (string, error) {
	if !validFilename(filename) {
		return "", fmt.Errorf("invalid audio filename %q", filename)
	}
	f, err := os.Create(filepath.Join(s.dir, filename))
	if err != nil {
		return "", fmt.Errorf("create audio file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("write audio file: %w", err)
	}
	return URLPrefix + filename, nil
}

// Path resolves a served filename to its on-disk path. It rejects anything
// that is not a plain .mp3 name in the audio dir.
func (s *FileStore) Path(filename string) (string, bool) {
	if !validFilename(filename) {
		return "", false
	}
	path := filepath.Join(s.dir, filename)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", false
	}
	return path, true
}

// Cleanup removes audio files older than the TTL and returns how many were
// reclaimed. Files deleted underneath us are skipped.
func (s *FileStore) Cleanup() (int, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*.mp3"))
	if err != nil {
		return 0, fmt.Errorf("scan audio dir: %w", err)
	}

	cutoff := time.Now().Add(-s.ttl)
	cleaned := 0
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err != nil {
				continue
			}
			cleaned++
		}
	}
	return cleaned, nil
}

func validFilename(filename string) bool {
	if filename == "" || filename != filepath.Base(filename) {
		return false
	}
	return filepath.Ext(filename) == ".mp3"
}

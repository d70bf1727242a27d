package dataset

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"shipdash/internal/models"
)

const cacheVersion = "v1"

// snapshot is the on-disk form of a parsed dataset. Records are stored after
// percentage normalization, so a snapshot is never normalized again.
type snapshot struct {
	Version    string
	Source     string
	SourceSize int64
	SourceMod  time.Time
	Records    []models.Record
}

func cacheFilename(cacheDir, sourcePath string) string {
	name := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(sourcePath)
	return filepath.Join(cacheDir, fmt.Sprintf("%s_%s.gob", name, cacheVersion))
}

func saveSnapshot(cacheDir, sourcePath string, info os.FileInfo, records []models.Record) error {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(cacheDir, "snapshot-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	snap := snapshot{
		Version:    cacheVersion,
		Source:     sourcePath,
		SourceSize: info.Size(),
		SourceMod:  info.ModTime(),
		Records:    records,
	}
	if err := gob.NewEncoder(tmp).Encode(&snap); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), cacheFilename(cacheDir, sourcePath))
}

// loadSnapshot returns the cached records when the snapshot still describes
// the source file.
func loadSnapshot(cacheDir, sourcePath string, info os.FileInfo) ([]models.Record, error) {
	file, err := os.Open(cacheFilename(cacheDir, sourcePath))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var snap snapshot
	if err := gob.NewDecoder(file).Decode(&snap); err != nil {
		return nil, err
	}

	if snap.Version != cacheVersion || snap.SourceSize != info.Size() || !snap.SourceMod.Equal(info.ModTime()) {
		return nil, fmt.Errorf("stale snapshot")
	}
	return snap.Records, nil
}

package diskguard

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/sys/unix"
)

// ErrNilLogger is returned when no logger is supplied.
var ErrNilLogger = errors.New("logger cannot be nil")

const bytesPerGiB = 1 << 30

// Guard checks free space on one directory's volume and reclaims space by
// deleting files inside that directory.
type Guard struct {
	dir          string
	minFreeBytes uint64
	logger       *slog.Logger

	// freeBytes reports available bytes on the volume holding dir.
	// Overridable in tests.
	freeBytes func(dir string) (uint64, error)
}

// New creates a Guard for the given directory with a threshold in GiB.
// The directory is created if it does not exist.
func New(dir string, minFreeGB float64, logger *slog.Logger) (*Guard, error) {
	if logger == nil {
		return nil, ErrNilLogger
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	return &Guard{
		dir:          dir,
		minFreeBytes: uint64(minFreeGB * bytesPerGiB),
		logger:       logger.With("component", "disk_guard"),
		freeBytes:    statfsFree,
	}, nil
}

// statfsFree returns the bytes available to unprivileged users on the
// volume holding dir.
func statfsFree(dir string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", dir, err)
	}
	return st.Bavail * uint64(st.Bsize), nil
}

// candidate is one deletable file in the guarded directory.
type candidate struct {
	path    string
	size    int64
	modTime time.Time
}

// Ensure checks free space and, if below the threshold, deletes files
// largest-first (oldest-first among equal sizes) until the threshold is
// restored or no files remain. Per-file deletion errors are logged and
// skipped.
func (g *Guard) Ensure() error {
	free, err := g.freeBytes(g.dir)
	if err != nil {
		return err
	}

	if free >= g.minFreeBytes {
		return nil
	}

	g.logger.Warn("free space below threshold, cleaning output files",
		"free_bytes", free,
		"min_free_bytes", g.minFreeBytes)

	candidates, err := g.listFiles()
	if err != nil {
		return err
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].size != candidates[j].size {
			return candidates[i].size > candidates[j].size
		}
		return candidates[i].modTime.Before(candidates[j].modTime)
	})

	for _, c := range candidates {
		if err := os.Remove(c.path); err != nil {
			g.logger.Warn("failed to delete output file, skipping",
				"path", c.path,
				"error", err)
			continue
		}
		g.logger.Info("deleted output file to reclaim space",
			"path", c.path,
			"size_bytes", c.size)

		free, err = g.freeBytes(g.dir)
		if err != nil {
			return err
		}
		if free >= g.minFreeBytes {
			return nil
		}
	}

	// Files exhausted without clearing the threshold; admission proceeds
	// anyway, matching the best-effort contract.
	g.logger.Warn("cleanup exhausted output files without restoring threshold",
		"free_bytes", free,
		"min_free_bytes", g.minFreeBytes)
	return nil
}

// listFiles returns the regular files directly inside the guarded directory.
func (g *Guard) listFiles() ([]candidate, error) {
	entries, err := os.ReadDir(g.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}

	candidates := make([]candidate, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to stat %s: %w", entry.Name(), err)
		}
		candidates = append(candidates, candidate{
			path:    filepath.Join(g.dir, entry.Name()),
			size:    info.Size(),
			modTime: info.ModTime(),
		})
	}
	return candidates, nil
}

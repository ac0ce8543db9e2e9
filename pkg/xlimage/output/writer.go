package output

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ukaji3/xlimage-go/pkg/xlimage/models"
	"golang.org/x/sync/errgroup"
)

const defaultParallelWrites = 4

// WriteConfig configures Write.
type WriteConfig struct {
	// Dir is created if missing.
	Dir string
	// Overwrite allows replacing existing files; otherwise a numeric suffix is added.
	Overwrite bool
	// Parallelism bounds concurrent file writes (default 4).
	Parallelism int
}

// Written describes one file written to disk.
type Written struct {
	SequenceIndex int    `json:"sequence_index"`
	Path          string `json:"path"`
	Bytes         int    `json:"bytes"`
}

// WriteResult holds the results of a Write.
type WriteResult struct {
	Files  []Written
	Errors []error // non-fatal per-file failures
}

// Write names and writes images to cfg.Dir. Names are assigned in sequence
// order before any file is written, so collisions resolve the same way on
// every run.
func Write(ctx context.Context, images []models.ExtractedImage, namer *Namer, cfg WriteConfig) (*WriteResult, error) {
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %q: %w", cfg.Dir, err)
	}

	paths := planFileNames(images, namer, cfg)

	parallel := cfg.Parallelism
	if parallel <= 0 {
		parallel = defaultParallelWrites
	}

	written := make([]*Written, len(images))
	var mu sync.Mutex
	var failures []error

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i := range images {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			img := images[i]
			if err := os.WriteFile(paths[i], img.Data, 0644); err != nil {
				mu.Lock()
				failures = append(failures, fmt.Errorf("failed to write image %d to %q: %w", img.SequenceIndex, paths[i], err))
				mu.Unlock()
				return nil
			}
			written[i] = &Written{SequenceIndex: img.SequenceIndex, Path: paths[i], Bytes: len(img.Data)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &WriteResult{Errors: failures}
	for _, w := range written {
		if w != nil {
			result.Files = append(result.Files, *w)
		}
	}
	return result, nil
}

// planFileNames assigns a unique path to every image. Collisions get -2, -3
// suffixes, compared case-insensitively.
func planFileNames(images []models.ExtractedImage, namer *Namer, cfg WriteConfig) []string {
	used := make(map[string]bool)
	paths := make([]string, len(images))

	for i, img := range images {
		base := SanitizeFileName(namer.BaseName(img))
		ext := img.Ext
		if ext == "" {
			ext = "png"
		}

		for n := 1; ; n++ {
			name := base + "." + ext
			if n > 1 {
				name = fmt.Sprintf("%s-%d.%s", base, n, ext)
			}
			key := strings.ToLower(name)
			if used[key] {
				continue
			}
			if !cfg.Overwrite && fileExists(filepath.Join(cfg.Dir, name)) {
				continue
			}
			used[key] = true
			paths[i] = filepath.Join(cfg.Dir, name)
			break
		}
	}
	return paths
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return !errors.Is(err, os.ErrNotExist)
}

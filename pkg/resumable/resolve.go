package resumable

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/NamanBalaji/resumable/internal/logger"
)

const maxResolvers = 4

// resolve turns selected paths into sources. Directories are walked when
// walkDirs is set and skipped otherwise. Roots are resolved concurrently
// but results keep the order of roots.
func (r *Resumable) resolve(ctx context.Context, roots []string, walkDirs bool) ([]Source, error) {
	results := make([][]Source, len(roots))
	errs := make([]error, len(roots))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxResolvers)

	for i, root := range roots {
		i, root := i, root
		g.Go(func() error {
			results[i], errs[i] = r.resolveRoot(ctx, root, walkDirs)
			return nil
		})
	}

	_ = g.Wait()

	var srcs []Source
	for _, res := range results {
		srcs = append(srcs, res...)
	}

	return srcs, errors.Join(errs...)
}

func (r *Resumable) resolveRoot(ctx context.Context, root string, walkDirs bool) ([]Source, error) {
	root = filepath.Clean(root)

	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		rel := filepath.Base(root)
		if r.ignored(rel) {
			return nil, nil
		}

		src, err := newFileSource(root, rel)
		if err != nil {
			return nil, err
		}

		return []Source{src}, nil
	}

	if !walkDirs {
		logger.Debugf("Skipping directory %s", root)
		return nil, nil
	}

	base := filepath.Base(root)

	var srcs []Source

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		if p == root {
			return nil
		}

		if hidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}

		rel = filepath.ToSlash(filepath.Join(base, rel))
		if r.ignored(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		src, err := newFileSource(p, rel)
		if err != nil {
			return err
		}

		srcs = append(srcs, src)

		return nil
	})

	return srcs, err
}

func (r *Resumable) ignored(rel string) bool {
	for _, pattern := range r.opts.Ignore {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}

	return false
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// SPDX-License-Identifier: MPL-2.0

package cache

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/invowk/pluginlib/pkg/library"

	"github.com/zeebo/blake3"
)

// TempGracePeriod is how old a temp file must be before Prune removes it.
const TempGracePeriod = time.Hour

// Entry describes one file in the cache directory.
type Entry struct {
	Name      string
	Path      string
	Size      int64
	ModTime   time.Time
	Relocated bool
}

// Entries lists the artifacts in the cache directory ordered by name. A
// missing directory yields no entries.
func (c *Cache) Entries() ([]Entry, error) {
	dirEntries, err := os.ReadDir(c.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache directory: %w", err)
	}

	var entries []Entry
	for _, de := range dirEntries {
		name := de.Name()
		if !de.Type().IsRegular() || isTemp(name) || filepath.Ext(name) != library.ArchiveExt {
			continue
		}
		info, err := de.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue // removed concurrently
			}
			return nil, err
		}
		entries = append(entries, Entry{
			Name:      name,
			Path:      filepath.Join(c.dir, name),
			Size:      info.Size(),
			ModTime:   info.ModTime(),
			Relocated: strings.HasSuffix(name, RelocatedSuffix+library.ArchiveExt),
		})
	}
	return entries, nil
}

// Digest returns the hex BLAKE3-256 digest of the file at path. It is shown in
// listings to tell entries apart; nothing is verified against it.
func Digest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }() // read-only file

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Prune removes every artifact and leftover temp file in the cache directory
// that none of keep resolves to, and returns the removed paths. Temp files
// modified within TempGracePeriod are left alone. With dryRun set, nothing is
// removed.
func (c *Cache) Prune(keep []library.Descriptor, dryRun bool) ([]string, error) {
	wanted := make(map[string]bool, 2*len(keep))
	for _, d := range keep {
		wanted[filepath.Base(c.RawPath(d))] = true
		wanted[filepath.Base(c.RelocatedPath(d))] = true
	}

	dirEntries, err := os.ReadDir(c.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache directory: %w", err)
	}

	var removed, failed []string
	var errs []error
	for _, de := range dirEntries {
		name := de.Name()
		if !de.Type().IsRegular() || wanted[name] {
			continue
		}
		temp := isTemp(name)
		if !temp && filepath.Ext(name) != library.ArchiveExt {
			continue
		}
		if temp && inFlight(de) {
			continue
		}
		path := filepath.Join(c.dir, name)
		if !dryRun {
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				failed = append(failed, path)
				errs = append(errs, err)
				continue
			}
			c.logger.Debug("pruned cache entry", "path", path)
		}
		removed = append(removed, path)
	}
	slices.Sort(removed)
	if len(errs) > 0 {
		return removed, fmt.Errorf("pruning %d of %d entries failed: %w", len(failed), len(failed)+len(removed), errors.Join(errs...))
	}
	return removed, nil
}

// inFlight reports whether a temp file is younger than TempGracePeriod and
// may still be written by another process.
func inFlight(de fs.DirEntry) bool {
	info, err := de.Info()
	if err != nil {
		return true
	}
	return time.Since(info.ModTime()) < TempGracePeriod
}

func isTemp(name string) bool {
	return strings.HasPrefix(name, ".pluginlib-") && strings.HasSuffix(name, ".tmp")
}

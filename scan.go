package devserve

import (
	"io/fs"
	"path"
	"strings"
	"time"
)

// WatchSet is a case-insensitive set of file extensions that trigger a reload.
// It can't be changed once built.
type WatchSet struct {
	exts map[string]struct{}
}

var defaultExts = []string{
	".html", ".htm",
	".css",
	".js", ".mjs",
	".json", ".xml", ".txt", ".md",
	".svg", ".png", ".jpg", ".jpeg", ".gif", ".webp", ".ico",
}

// DefaultWatchSet covers the markup, stylesheet, script, data and image files
// of a typical static site
func DefaultWatchSet() WatchSet {
	return NewWatchSet(defaultExts...)
}

// NewWatchSet builds a watch set. Extensions may be given with or without the
// leading dot.
func NewWatchSet(exts ...string) WatchSet {
	set := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(ext)
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = struct{}{}
	}
	return WatchSet{set}
}

// Match reports whether the file's extension is in the set
func (w WatchSet) Match(name string) bool {
	ext := path.Ext(name)
	if ext == "" {
		return false
	}
	_, ok := w.exts[strings.ToLower(ext)]
	return ok
}

// LatestModTime walks fsys and returns the newest modification time among the
// regular files that match the watch set. The ".git" directory at the root is
// skipped. Errors are ignored: an unreadable entry is treated as absent and a
// missing root returns the zero time.
func LatestModTime(fsys fs.FS, watch WatchSet) (latest time.Time) {
	fs.WalkDir(fsys, ".", func(fpath string, de fs.DirEntry, err error) error {
		if err != nil {
			// Keep walking past unreadable directories
			return nil
		}
		if de.IsDir() {
			if fpath == ".git" {
				return fs.SkipDir
			}
			return nil
		}
		if !watch.Match(fpath) {
			return nil
		}
		// Stat rather than de.Info() so symlinked files report their target
		info, err := fs.Stat(fsys, fpath)
		if err != nil || !info.Mode().IsRegular() {
			return nil
		}
		if modTime := info.ModTime(); modTime.After(latest) {
			latest = modTime
		}
		return nil
	})
	return latest
}

// Seconds converts t into fractional seconds since the Unix epoch. The zero
// time and anything before the epoch is 0.
func Seconds(t time.Time) float64 {
	if t.IsZero() || t.Unix() < 0 {
		return 0
	}
	// UnixNano overflows after 2262
	return float64(t.Unix()) + float64(t.Nanosecond())/float64(time.Second)
}

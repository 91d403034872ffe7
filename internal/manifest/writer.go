package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/adlift/toolkit/internal/log"
)

// DefaultDir is the policy-resolved fallback manifest directory,
// relative to the working directory.
const DefaultDir = "toolkit-manifests"

// tmpPrefix marks in-flight manifest files awaiting the atomic rename
const tmpPrefix = ".tmp_"

var commandSanitizer = regexp.MustCompile(`[^A-Za-z0-9-]`)

// ResolveDir applies the directory precedence: explicit argument, then
// TOOLKIT_MANIFEST_DIR, then the policy default.
func ResolveDir(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv("TOOLKIT_MANIFEST_DIR"); env != "" {
		return env
	}
	return DefaultDir
}

// Write persists a finalized document. It is best-effort: every failure
// is logged to stderr and reported as an empty path, never as an error,
// so the run's status and exit code are never disturbed by persistence
// problems.
//
// The write is atomic: the document lands under a .tmp_ name first and
// is renamed into place, so readers never observe a partial manifest.
func Write(doc *Document, dir string) string {
	logger := log.L().With("runId", doc.RunID)

	dir = ResolveDir(dir)
	if filepath.Clean(dir) == string(filepath.Separator) {
		// Output-path policy: never spray manifests into the filesystem root.
		logger.Warn("manifest not written: unsafe output directory", "dir", dir)
		return ""
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		logger.Warn("manifest not written: cannot create directory", "dir", dir, "error", err)
		return ""
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		logger.Warn("manifest not written: serialization failed", "error", err)
		return ""
	}
	if len(data) > MaxDocumentBytes {
		logger.Warn("manifest not written: document exceeds size cap",
			"bytes", len(data), "cap", MaxDocumentBytes)
		return ""
	}

	tmp := filepath.Join(dir, tmpPrefix+doc.RunID+".json")
	if err := writeAndSync(tmp, data); err != nil {
		logger.Warn("manifest not written: temp write failed", "path", tmp, "error", err)
		_ = os.Remove(tmp)
		return ""
	}

	path := filepath.Join(dir, Filename(doc))
	if err := os.Rename(tmp, path); err != nil {
		logger.Warn("manifest not written: rename failed", "path", path, "error", err)
		_ = os.Remove(tmp)
		return ""
	}

	appendRunLog(dir, doc, filepath.Base(path), data)
	logger.Info("manifest written", "path", path)
	return path
}

// Filename derives the canonical manifest filename:
// {runId}_{sanitizedCommand}_{YYYYMMDDTHHMMSSZ}.manifest.json
func Filename(doc *Document) string {
	command := commandSanitizer.ReplaceAllString(doc.Invocation.Command, "_")
	stamp := doc.FinishedAt.UTC().Format("20060102T150405Z")
	return doc.RunID + "_" + command + "_" + stamp + ".manifest.json"
}

// writeAndSync writes data and flushes it to stable storage. A failed
// Sync is tolerated since not every filesystem supports it; a failed
// Write or Close is not.
func writeAndSync(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	_ = f.Sync()
	return f.Close()
}

// CleanupOrphans removes .tmp_ files older than maxAge from dir,
// swallowing all errors. Housekeeping only; correctness never depends
// on it. Returns the number of files removed.
func CleanupOrphans(dir string, maxAge time.Duration) int {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	dir = ResolveDir(dir)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || len(entry.Name()) < len(tmpPrefix) || entry.Name()[:len(tmpPrefix)] != tmpPrefix {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if os.Remove(filepath.Join(dir, entry.Name())) == nil {
			removed++
		}
	}
	return removed
}

package manifest

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"
)

// RunLogName is the append-only JSONL index kept beside the manifests
const RunLogName = "runs.log"

// RunLogEntry is one line of the run index: enough to locate a manifest
// and verify it was not modified after the fact.
type RunLogEntry struct {
	RunID     string    `json:"runId"`
	Command   string    `json:"command"`
	Status    Status    `json:"status"`
	ExitCode  int       `json:"exitCode"`
	File      string    `json:"file"`
	Checksum  string    `json:"checksum"`
	WrittenAt time.Time `json:"writtenAt"`
}

// appendRunLog records a written manifest in the run index. Best effort:
// index failures never affect the run.
func appendRunLog(dir string, doc *Document, file string, data []byte) {
	sum := blake3.Sum256(data)
	entry := RunLogEntry{
		RunID:     doc.RunID,
		Command:   doc.Invocation.Command,
		Status:    doc.Status,
		ExitCode:  doc.ExitCode,
		File:      file,
		Checksum:  hex.EncodeToString(sum[:]),
		WrittenAt: time.Now().UTC(),
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return
	}

	f, err := os.OpenFile(filepath.Join(dir, RunLogName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = f.Write(append(line, '\n'))
}

// ReadRunLog parses the run index in dir, skipping unparseable lines
func ReadRunLog(dir string) ([]RunLogEntry, error) {
	data, err := os.ReadFile(filepath.Join(ResolveDir(dir), RunLogName))
	if err != nil {
		return nil, err
	}

	var entries []RunLogEntry
	start := 0
	for i := 0; i <= len(data); i++ {
		if i == len(data) || data[i] == '\n' {
			line := data[start:i]
			start = i + 1
			if len(line) == 0 {
				continue
			}
			var entry RunLogEntry
			if json.Unmarshal(line, &entry) == nil {
				entries = append(entries, entry)
			}
		}
	}
	return entries, nil
}

// VerifyChecksum recomputes the blake3 checksum of a written manifest
// and compares it to the run-index entry.
func VerifyChecksum(entry RunLogEntry, dir string) (bool, error) {
	data, err := os.ReadFile(filepath.Join(ResolveDir(dir), entry.File))
	if err != nil {
		return false, err
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]) == entry.Checksum, nil
}

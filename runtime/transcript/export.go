package transcript

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// timestampLayout matches the backend's formatted transcript stamps.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// Format renders one "[timestamp] ROLE: text" line per utterance.
// Utterances that are blank after trimming are skipped.
func (a *Aggregator) Format() string {
	var b strings.Builder
	for _, u := range a.Utterances() {
		text := strings.TrimSpace(u.Text)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[%s] %s: %s", u.StartedAt.UTC().Format(timestampLayout), strings.ToUpper(string(u.Role)), text)
	}
	return b.String()
}

// WriteJSONL writes one JSON object per utterance.
func (a *Aggregator) WriteJSONL(w io.Writer) error {
	enc := json.NewEncoder(w)
	for _, u := range a.Utterances() {
		if err := enc.Encode(u); err != nil {
			return fmt.Errorf("encode utterance: %w", err)
		}
	}
	return nil
}

// Export writes <prefix>_transcript.jsonl and <prefix>_formatted_transcript.txt
// into dir and returns their paths.
func (a *Aggregator) Export(dir, prefix string) (jsonlPath, textPath string, err error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", "", fmt.Errorf("create transcript dir: %w", err)
	}
	if prefix == "" {
		prefix = time.Now().UTC().Format("20060102T150405Z")
	}

	jsonlPath = filepath.Join(dir, prefix+"_transcript.jsonl")
	f, err := os.Create(jsonlPath) //nolint:gosec // path built from configured dir
	if err != nil {
		return "", "", fmt.Errorf("create %s: %w", jsonlPath, err)
	}
	if err := a.WriteJSONL(f); err != nil {
		_ = f.Close()
		return "", "", err
	}
	if err := f.Close(); err != nil {
		return "", "", fmt.Errorf("close %s: %w", jsonlPath, err)
	}

	textPath = filepath.Join(dir, prefix+"_formatted_transcript.txt")
	if err := os.WriteFile(textPath, []byte(a.Format()), 0o600); err != nil {
		return "", "", fmt.Errorf("write %s: %w", textPath, err)
	}
	return jsonlPath, textPath, nil
}

package output

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/jamesainslie/dir2ml/pkg/dir2ml/types"
)

// jsonOutput represents the full JSON output structure.
type jsonOutput struct {
	Files []jsonFile `json:"files"`
	Stats jsonStats  `json:"stats"`
	Meta  jsonMeta   `json:"meta"`
}

// jsonFile represents a file in JSON output.
type jsonFile struct {
	Name      string            `json:"name"`
	Size      int64             `json:"size"`
	SizeHuman string            `json:"size_human"`
	ModTime   time.Time         `json:"mod_time"`
	Hashes    map[string]string `json:"hashes"`
	Locations []types.Location  `json:"locations"`
	Group     int               `json:"group"`
}

type jsonStats struct {
	Dirs        int64   `json:"dirs"`
	Files       int64   `json:"files"`
	Bytes       int64   `json:"bytes"`
	Survivors   int64   `json:"survivors"`
	Merges      int64   `json:"merges"`
	Comparisons int64   `json:"comparisons"`
	Collisions  int64   `json:"collisions"`
	Skipped     int64   `json:"skipped"`
	Filtered    int64   `json:"filtered"`
	Duration    string  `json:"duration,omitempty"`
	Mbps        float64 `json:"mbps"`
}

type jsonMeta struct {
	Source     string            `json:"source"`
	RunID      string            `json:"run_id,omitempty"`
	Generator  string            `json:"generator,omitempty"`
	Updated    *time.Time        `json:"updated,omitempty"`
	TotalSize  int64             `json:"total_size"`
	Collisions []types.Collision `json:"collisions,omitempty"`
	Warnings   []string          `json:"warnings,omitempty"`
}

// JSONFormatter formats output as a single indented JSON object with
// files, stats and meta sections.
type JSONFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(buildJSON(r))
}

func buildJSON(r *Result) jsonOutput {
	files := make([]jsonFile, len(r.Files))
	for i, file := range r.Files {
		files[i] = toJSONFile(file)
	}

	meta := jsonMeta{
		Source:     r.Source,
		RunID:      r.RunID,
		Generator:  r.Generator,
		TotalSize:  r.TotalSize(),
		Collisions: r.Collisions,
		Warnings:   r.Warnings,
	}
	if !r.Updated.IsZero() {
		u := r.Updated.UTC()
		meta.Updated = &u
	}

	return jsonOutput{Files: files, Stats: toJSONStats(r.Stats), Meta: meta}
}

func toJSONFile(file types.FileRecord) jsonFile {
	hashes := make(map[string]string, len(file.Hashes))
	for _, h := range file.Hashes {
		hashes[h.Type] = h.Hex
	}
	return jsonFile{
		Name:      file.Name,
		Size:      file.Size,
		SizeHuman: types.FormatSize(file.Size),
		ModTime:   file.ModTime,
		Hashes:    hashes,
		Locations: file.Locations,
		Group:     file.Group,
	}
}

func toJSONStats(s types.Stats) jsonStats {
	return jsonStats{
		Dirs:        s.DirsVisited,
		Files:       s.FilesSeen,
		Bytes:       s.BytesHashed,
		Survivors:   s.Survivors,
		Merges:      s.Merges,
		Comparisons: s.Comparisons,
		Collisions:  s.Collisions,
		Skipped:     s.Skipped,
		Filtered:    s.Filtered,
		Duration:    formatDurationString(s.Elapsed),
		Mbps:        s.Mbps(),
	}
}

// formatDurationString formats a duration for JSON output, empty when zero.
func formatDurationString(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.String()
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

// Ensure JSONFormatter implements Formatter.
var _ Formatter = (*JSONFormatter)(nil)

// JSONLFormatter writes one compact JSON object per file, for streaming
// into tools like jq.
type JSONLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONLFormatter) Format(w *bytes.Buffer, r *Result) error {
	for _, file := range r.Files {
		data, err := json.Marshal(toJSONFile(file))
		if err != nil {
			return err
		}
		w.Write(data)
		w.WriteByte('\n')
	}
	return nil
}

func init() {
	Register("jsonl", func() Formatter {
		return &JSONLFormatter{}
	})
}

// Ensure JSONLFormatter implements Formatter.
var _ Formatter = (*JSONLFormatter)(nil)

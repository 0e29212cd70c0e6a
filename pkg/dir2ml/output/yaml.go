package output

import (
	"bytes"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/dir2ml/pkg/dir2ml/types"
)

type yamlOutput struct {
	Files []yamlFile `yaml:"files"`
	Stats yamlStats  `yaml:"stats"`
	Meta  yamlMeta   `yaml:"meta"`
}

type yamlFile struct {
	Name      string           `yaml:"name"`
	Size      int64            `yaml:"size"`
	SizeHuman string           `yaml:"size_human"`
	ModTime   time.Time        `yaml:"mod_time"`
	Hashes    []types.Hash     `yaml:"hashes"`
	Locations []types.Location `yaml:"locations"`
	Group     int              `yaml:"group"`
}

type yamlStats struct {
	Dirs       int64  `yaml:"dirs"`
	Files      int64  `yaml:"files"`
	Bytes      int64  `yaml:"bytes"`
	Survivors  int64  `yaml:"survivors"`
	Merges     int64  `yaml:"merges"`
	Collisions int64  `yaml:"collisions"`
	Skipped    int64  `yaml:"skipped"`
	Filtered   int64  `yaml:"filtered"`
	Duration   string `yaml:"duration,omitempty"`
}

type yamlMeta struct {
	Source     string            `yaml:"source"`
	RunID      string            `yaml:"run_id,omitempty"`
	Generator  string            `yaml:"generator,omitempty"`
	Updated    string            `yaml:"updated,omitempty"`
	TotalSize  int64             `yaml:"total_size"`
	Collisions []types.Collision `yaml:"collisions,omitempty"`
	Warnings   []string          `yaml:"warnings,omitempty"`
}

// YAMLFormatter formats output as YAML.
// It produces the same structure as JSONFormatter.
type YAMLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *YAMLFormatter) Format(w *bytes.Buffer, r *Result) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(f.buildOutput(r)); err != nil {
		return err
	}
	return encoder.Close()
}

func (f *YAMLFormatter) buildOutput(r *Result) yamlOutput {
	files := make([]yamlFile, len(r.Files))
	for i, file := range r.Files {
		files[i] = yamlFile{
			Name:      file.Name,
			Size:      file.Size,
			SizeHuman: types.FormatSize(file.Size),
			ModTime:   file.ModTime,
			Hashes:    file.Hashes,
			Locations: file.Locations,
			Group:     file.Group,
		}
	}

	stats := yamlStats{
		Dirs:       r.Stats.DirsVisited,
		Files:      r.Stats.FilesSeen,
		Bytes:      r.Stats.BytesHashed,
		Survivors:  r.Stats.Survivors,
		Merges:     r.Stats.Merges,
		Collisions: r.Stats.Collisions,
		Skipped:    r.Stats.Skipped,
		Filtered:   r.Stats.Filtered,
		Duration:   formatDurationString(r.Stats.Elapsed),
	}

	meta := yamlMeta{
		Source:     r.Source,
		RunID:      r.RunID,
		Generator:  r.Generator,
		TotalSize:  r.TotalSize(),
		Collisions: r.Collisions,
		Warnings:   r.Warnings,
	}
	if !r.Updated.IsZero() {
		meta.Updated = r.Updated.UTC().Format(time.RFC3339)
	}

	return yamlOutput{Files: files, Stats: stats, Meta: meta}
}

func init() {
	Register("yaml", func() Formatter {
		return &YAMLFormatter{}
	})
}

// Ensure YAMLFormatter implements Formatter.
var _ Formatter = (*YAMLFormatter)(nil)

package archer

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// IndexOptions configures a new or reopened Index, mirroring blaze's
// AnalyzerConfig / BM25Parameters DefaultXxx() pattern rather than a
// general-purpose config framework — this codebase configures structs
// directly, not files, except where an index directory needs to record
// its own settings (below).
type IndexOptions struct {
	Segment SegmentOptions `yaml:"segment"`
}

// DefaultIndexOptions returns standard settings.
func DefaultIndexOptions() IndexOptions {
	return IndexOptions{Segment: DefaultSegmentOptions()}
}

// segmentOptionsYAML mirrors SegmentOptions with yaml tags; kept
// separate so SegmentOptions itself stays a plain config struct used
// freely outside any serialization context.
type segmentOptionsYAML struct {
	MaxSegmentBytes uint32 `yaml:"max_segment_bytes"`
	MaxWordLabels   int    `yaml:"max_word_labels"`
}

// MarshalYAML implements yaml.Marshaler.
func (o IndexOptions) MarshalYAML() (interface{}, error) {
	return struct {
		Segment segmentOptionsYAML `yaml:"segment"`
	}{
		Segment: segmentOptionsYAML{
			MaxSegmentBytes: o.Segment.MaxSegmentBytes,
			MaxWordLabels:   o.Segment.MaxWordLabels,
		},
	}, nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (o *IndexOptions) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw struct {
		Segment segmentOptionsYAML `yaml:"segment"`
	}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	o.Segment = SegmentOptions{
		MaxSegmentBytes: raw.Segment.MaxSegmentBytes,
		MaxWordLabels:   raw.Segment.MaxWordLabels,
	}
	return nil
}

// LoadOptionsYAML reads config.yaml from an index directory, falling
// back to DefaultIndexOptions if the file does not exist.
func LoadOptionsYAML(path string) (IndexOptions, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultIndexOptions(), nil
	}
	if err != nil {
		return IndexOptions{}, fmt.Errorf("%w: %v", ErrIO, err)
	}
	opts := DefaultIndexOptions()
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return IndexOptions{}, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return opts, nil
}

// SaveOptionsYAML writes opts to path as config.yaml.
func SaveOptionsYAML(path string, opts IndexOptions) error {
	data, err := yaml.Marshal(opts)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	return nil
}

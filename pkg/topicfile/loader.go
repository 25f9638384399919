package topicfile

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

const logPrefix = "topicfile:loader"

// EnvTopicsFile names the env var consulted after explicit paths.
const EnvTopicsFile = "ROSBRIDGE_TOPICS_FILE"

// ErrInvalidFile is wrapped by every validation failure.
var ErrInvalidFile = errors.New("invalid topics file")

// Load reads the first readable topics file. Paths passed in are tried
// first, then ROSBRIDGE_TOPICS_FILE, then config/topics.yaml and
// topics.yaml. When none exists an empty File is returned.
// A named path (an argument or ROSBRIDGE_TOPICS_FILE) that cannot be read
// is an error, as is a file that does not parse or validate. Only the
// default locations may be missing.
func Load(paths ...string) (*File, error) {
	type candidate struct {
		path  string
		named bool
	}
	all := make([]candidate, 0, len(paths)+3)
	for _, p := range paths {
		if p != "" {
			all = append(all, candidate{path: p, named: true})
		}
	}
	if envPath := os.Getenv(EnvTopicsFile); envPath != "" {
		all = append(all, candidate{path: envPath, named: true})
	}
	all = append(all, candidate{path: "config/topics.yaml"}, candidate{path: "topics.yaml"})

	for _, c := range all {
		data, err := os.ReadFile(c.path)
		if err != nil {
			if !c.named && errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("%s - read topics file: %w", logPrefix, err)
		}
		f, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s - %s: %w", logPrefix, c.path, err)
		}
		slog.Info(fmt.Sprintf("%s - Loaded %d topics from %s", logPrefix, len(f.Topics), c.path))
		return f, nil
	}

	slog.Info(fmt.Sprintf("%s - No topics file found, starting with no subscriptions", logPrefix))
	return &File{}, nil
}

// Parse decodes and validates a topics file.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks that every entry names a topic and a type and that no
// topic is listed twice.
func (f *File) Validate() error {
	seen := make(map[string]bool, len(f.Topics))
	for i, e := range f.Topics {
		if e.Topic == "" {
			return fmt.Errorf("%w: topics[%d]: topic is required", ErrInvalidFile, i)
		}
		if e.Type == "" {
			return fmt.Errorf("%w: topics[%d] (%s): type is required", ErrInvalidFile, i, e.Topic)
		}
		if e.ThrottleRate < 0 || e.QueueLength < 0 {
			return fmt.Errorf("%w: topics[%d] (%s): throttle_rate and queue_length must not be negative", ErrInvalidFile, i, e.Topic)
		}
		if seen[e.Topic] {
			return fmt.Errorf("%w: topic %s is listed more than once", ErrInvalidFile, e.Topic)
		}
		seen[e.Topic] = true
	}
	return nil
}

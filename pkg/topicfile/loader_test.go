package topicfile

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
name: robot
topics:
  - topic: /robot/pose
    type: geometry_msgs/PoseWithCovarianceStamped
    throttle_rate: 100
    queue_length: 1
  - topic: /chatter
    type: std_msgs/String
`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "topics.yaml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestParse(t *testing.T) {
	f, err := Parse([]byte(sample))
	require.NoError(t, err)
	assert.Equal(t, "robot", f.Name)
	require.Len(t, f.Topics, 2)

	pose := f.Topics[0]
	assert.Equal(t, "/robot/pose", pose.Topic)
	assert.Equal(t, "geometry_msgs/PoseWithCovarianceStamped", pose.Type)
	opts := pose.Options()
	assert.Equal(t, 100, opts.ThrottleRate)
	assert.Equal(t, 1, opts.QueueLength)
	assert.Empty(t, opts.Compression)

	assert.Zero(t, f.Topics[1].ThrottleRate)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not yaml", "topics: [unterminated"},
		{"missing topic", "topics:\n  - type: std_msgs/String\n"},
		{"missing type", "topics:\n  - topic: /chatter\n"},
		{"negative throttle", "topics:\n  - topic: /a\n    type: std_msgs/String\n    throttle_rate: -1\n"},
		{"duplicate", "topics:\n  - topic: /a\n    type: std_msgs/String\n  - topic: /a\n    type: std_msgs/String\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content))
			assert.ErrorIs(t, err, ErrInvalidFile)
		})
	}
}

func TestLoad_ExplicitPathFirst(t *testing.T) {
	p := writeFile(t, sample)
	t.Setenv(EnvTopicsFile, writeFile(t, "topics: []\n"))

	f, err := Load(p)
	require.NoError(t, err)
	assert.Len(t, f.Topics, 2)
}

func TestLoad_EnvFallback(t *testing.T) {
	t.Setenv(EnvTopicsFile, writeFile(t, sample))

	f, err := Load("")
	require.NoError(t, err)
	assert.Len(t, f.Topics, 2)
}

func TestLoad_NothingFound(t *testing.T) {
	t.Setenv(EnvTopicsFile, "")

	f, err := Load()
	require.NoError(t, err)
	assert.Empty(t, f.Topics)
}

func TestLoad_MissingNamedPathIsError(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.yaml")

	t.Run("argument", func(t *testing.T) {
		t.Setenv(EnvTopicsFile, writeFile(t, sample))
		_, err := Load(missing)
		require.ErrorIs(t, err, fs.ErrNotExist)
		assert.Contains(t, err.Error(), missing)
	})

	t.Run("env", func(t *testing.T) {
		t.Setenv(EnvTopicsFile, missing)
		_, err := Load()
		require.ErrorIs(t, err, fs.ErrNotExist)
		assert.Contains(t, err.Error(), missing)
	})
}

func TestLoad_UnreadableNamedPathIsError(t *testing.T) {
	t.Setenv(EnvTopicsFile, "")
	_, err := Load(t.TempDir())
	assert.Error(t, err)
}

func TestLoad_InvalidFileIsError(t *testing.T) {
	p := writeFile(t, "topics:\n  - topic: /a\n")
	_, err := Load(p)
	assert.ErrorIs(t, err, ErrInvalidFile)
}

package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/stwalsh4118/retroguide/internal/logger"
)

// Common errors
var (
	ErrFFprobeNotFound = errors.New("ffprobe not found in PATH")
	ErrFileNotFound    = errors.New("file not found or not readable")
	ErrInvalidFile     = errors.New("invalid or corrupted video file")
	ErrTimeout         = errors.New("ffprobe execution timed out")
	ErrNoDuration      = errors.New("could not determine media duration")
)

// ProbeResult is the subset of ffprobe JSON output used for length detection
type ProbeResult struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream represents a single stream entry
type Stream struct {
	Index     int    `json:"index"`
	CodecType string `json:"codec_type"`
	Duration  string `json:"duration,omitempty"`
}

// Format represents the container information
type Format struct {
	Filename   string `json:"filename"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
}

// FFprobe measures media length by running the ffprobe binary.
// Relative paths are resolved against LibraryPath.
type FFprobe struct {
	Binary      string
	LibraryPath string
}

// NewFFprobe creates a prober that uses ffprobe from PATH
func NewFFprobe(libraryPath string) *FFprobe {
	return &FFprobe{Binary: "ffprobe", LibraryPath: libraryPath}
}

// CheckFFprobeInstalled checks if FFprobe is available in PATH
func CheckFFprobeInstalled() error {
	if _, err := exec.LookPath("ffprobe"); err != nil {
		return ErrFFprobeNotFound
	}
	return nil
}

// ResolvePath returns the on-disk location of a catalog path
func (f *FFprobe) ResolvePath(filePath string) string {
	if filepath.IsAbs(filePath) || f.LibraryPath == "" {
		return filePath
	}
	return filepath.Join(f.LibraryPath, filePath)
}

// ProbeDuration returns the length of the file in seconds. The caller's context
// bounds the run; no extra timeout is applied here.
func (f *FFprobe) ProbeDuration(ctx context.Context, filePath string) (float64, error) {
	binary := f.Binary
	if binary == "" {
		binary = "ffprobe"
	}
	if _, err := exec.LookPath(binary); err != nil {
		return 0, ErrFFprobeNotFound
	}

	path := f.ResolvePath(filePath)

	logger.Log.Debug().
		Str("file_path", path).
		Msg("Probing media duration with FFprobe")

	cmd := exec.CommandContext(ctx,
		binary,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return 0, ErrTimeout
		}
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return 0, fmt.Errorf("%w: %s", ErrInvalidFile, exitErr.Stderr)
		}
		return 0, fmt.Errorf("%w: %v", ErrFileNotFound, err)
	}

	var result ProbeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	return extractDuration(&result)
}

// extractDuration prefers the container duration and falls back to the
// longest stream duration
func extractDuration(result *ProbeResult) (float64, error) {
	if d, ok := parsePositive(result.Format.Duration); ok {
		return d, nil
	}

	var longest float64
	for _, s := range result.Streams {
		if d, ok := parsePositive(s.Duration); ok && d > longest {
			longest = d
		}
	}
	if longest > 0 {
		return longest, nil
	}
	return 0, ErrNoDuration
}

func parsePositive(s string) (float64, bool) {
	if s == "" || s == "N/A" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

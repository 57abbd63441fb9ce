package indexer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// FrameExtractor is the narrow synchronous interface over the external
// video-processing utilities. Keeping process and temp-file lifecycle
// behind it makes the pipeline logic unit-testable against a fake.
type FrameExtractor interface {
	// Duration probes the clip length in seconds.
	Duration(ctx context.Context, videoBytes []byte) (float64, error)

	// ExtractFrame grabs the single frame at the given timestamp as JPEG
	// bytes.
	ExtractFrame(ctx context.Context, videoBytes []byte, timestampSeconds int) ([]byte, error)
}

// FFmpegExtractor implements FrameExtractor with the ffprobe and ffmpeg
// command-line tools. Non-zero exits propagate as fatal.
type FFmpegExtractor struct{}

// NewFFmpegExtractor creates an extractor backed by the ffmpeg tools on PATH.
func NewFFmpegExtractor() *FFmpegExtractor {
	return &FFmpegExtractor{}
}

// Duration writes the video to a temp file and probes its format duration.
func (e *FFmpegExtractor) Duration(ctx context.Context, videoBytes []byte) (float64, error) {
	videoPath, cleanup, err := writeTempVideo(videoBytes)
	if err != nil {
		return 0, err
	}
	defer cleanup()

	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		videoPath,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(stdout.String()), 64)
	if err != nil {
		return 0, fmt.Errorf("parse ffprobe duration: %w", err)
	}

	return duration, nil
}

// ExtractFrame writes the video to a temp dir and pulls one frame at the
// given offset.
func (e *FFmpegExtractor) ExtractFrame(ctx context.Context, videoBytes []byte, timestampSeconds int) ([]byte, error) {
	dir, err := os.MkdirTemp("", "videoindex-frame-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	videoPath := filepath.Join(dir, "input.mp4")
	if err := os.WriteFile(videoPath, videoBytes, 0644); err != nil {
		return nil, fmt.Errorf("write temp video: %w", err)
	}
	framePath := filepath.Join(dir, "frame.jpg")

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y",
		"-ss", strconv.Itoa(timestampSeconds),
		"-i", videoPath,
		"-vframes", "1",
		"-q:v", "2",
		framePath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg frame extraction at %ds failed: %w (%s)",
			timestampSeconds, err, strings.TrimSpace(stderr.String()))
	}

	frame, err := os.ReadFile(framePath)
	if err != nil {
		return nil, fmt.Errorf("read extracted frame: %w", err)
	}

	return frame, nil
}

// writeTempVideo stores the video bytes in a temp file and returns the path
// with a cleanup func.
func writeTempVideo(videoBytes []byte) (string, func(), error) {
	f, err := os.CreateTemp("", "videoindex-*.mp4")
	if err != nil {
		return "", nil, fmt.Errorf("create temp video: %w", err)
	}
	if _, err := f.Write(videoBytes); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", nil, fmt.Errorf("write temp video: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", nil, fmt.Errorf("close temp video: %w", err)
	}
	return f.Name(), func() { os.Remove(f.Name()) }, nil
}

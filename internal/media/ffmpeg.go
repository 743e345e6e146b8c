package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultBitrateKbps is the target bitrate of stored attachments
const DefaultBitrateKbps = 64

// FFmpegTranscoder re-encodes audio to constant bitrate MP3 by piping the
// payload through an ffmpeg process.
type FFmpegTranscoder struct {
	path        string
	bitrateKbps int
	logger      *logrus.Logger
}

// NewFFmpegTranscoder creates a transcoder using the ffmpeg binary at path
func NewFFmpegTranscoder(path string, bitrateKbps int, logger *logrus.Logger) *FFmpegTranscoder {
	if path == "" {
		path = "ffmpeg"
	}
	if bitrateKbps <= 0 {
		bitrateKbps = DefaultBitrateKbps
	}
	return &FFmpegTranscoder{path: path, bitrateKbps: bitrateKbps, logger: logger}
}

// Available reports whether the ffmpeg binary can be found
func (t *FFmpegTranscoder) Available() bool {
	_, err := exec.LookPath(t.path)
	return err == nil
}

// StdinInput makes ffmpeg read the payload from its standard input
const StdinInput = "pipe:0"

// BuildArgs returns the ffmpeg arguments for an MP3 encode of input to stdout
func BuildArgs(input string, bitrateKbps int) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", input,
		"-vn",
		"-c:a", "libmp3lame",
		"-b:a", strconv.Itoa(bitrateKbps) + "k",
		"-f", "mp3",
		"pipe:1",
	}
}

// Transcode encodes raw into MP3 at the configured bitrate
func (t *FFmpegTranscoder) Transcode(ctx context.Context, raw []byte) ([]byte, error) {
	start := time.Now()

	input := StdinInput
	if NeedsSeekableInput(raw) {
		path, cleanup, err := stageInput(raw)
		if err != nil {
			return nil, err
		}
		defer cleanup()
		input = path
	}

	cmd := exec.CommandContext(ctx, t.path, BuildArgs(input, t.bitrateKbps)...)
	if input == StdinInput {
		cmd.Stdin = bytes.NewReader(raw)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("ffmpeg failed: %w: %s", err, msg)
		}
		return nil, fmt.Errorf("ffmpeg failed: %w", err)
	}
	if stdout.Len() == 0 {
		return nil, errors.New("ffmpeg produced no output")
	}

	t.logger.WithFields(logrus.Fields{
		"input_size":  len(raw),
		"output_size": stdout.Len(),
		"bitrate":     t.bitrateKbps,
		"duration":    time.Since(start),
	}).Debug("Transcoded audio")

	return stdout.Bytes(), nil
}

// NeedsSeekableInput reports whether raw is an MP4 family container. Its moov
// atom may follow the media data, which ffmpeg cannot reach on a pipe.
func NeedsSeekableInput(raw []byte) bool {
	return len(raw) >= 8 && string(raw[4:8]) == "ftyp"
}

func stageInput(raw []byte) (string, func(), error) {
	f, err := os.CreateTemp("", "musiccatalog-*.m4a")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create staging file: %w", err)
	}
	cleanup := func() { os.Remove(f.Name()) }

	if _, err := f.Write(raw); err != nil {
		f.Close()
		cleanup()
		return "", nil, fmt.Errorf("failed to write staging file: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to close staging file: %w", err)
	}
	return f.Name(), cleanup, nil
}

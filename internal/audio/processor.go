package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/himanishpuri/SpeechGate/pkg/utils"
)

const DefaultDecodeTimeout = 60 * time.Second

type ConvertWAVConfig struct {
	SampleRate int // target rate, e.g. 16000
	Timeout    time.Duration
	FFmpegPath string
}

// ConvertedBitDepth is the PCM depth ffmpeg writes.
const ConvertedBitDepth = 24

// ConvertToMonoWAV resamples and downmixes any ffmpeg-readable file into a
// mono 24-bit PCM WAV inside outputDir. The output name is derived from the
// input base name, so callers sharing a directory across goroutines must give
// each call its own outputDir.
func ConvertToMonoWAV(
	ctx context.Context,
	inputPath string,
	outputDir string,
	cfg ConvertWAVConfig,
) (string, error) {

	if cfg.SampleRate <= 0 {
		return "", fmt.Errorf("invalid target sample rate %d", cfg.SampleRate)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultDecodeTimeout
	}
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	if err := utils.MakeDir(outputDir); err != nil {
		return "", err
	}

	baseName := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	outputPath := filepath.Join(outputDir, baseName+".wav")

	tmpPath := outputPath + ".tmp.wav"
	defer os.Remove(tmpPath)

	cmd := exec.CommandContext(
		ctx,
		cfg.FFmpegPath,
		"-y",
		"-v", "error",
		"-i", inputPath,
		"-ac", "1", // mono
		"-ar", fmt.Sprintf("%d", cfg.SampleRate),
		"-c:a", fmt.Sprintf("pcm_s%dle", ConvertedBitDepth),
		tmpPath,
	)

	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("ffmpeg: %w", ctx.Err())
		}
		return "", fmt.Errorf("ffmpeg failed: %v (%s)", err, strings.TrimSpace(string(out)))
	}

	if err := utils.MoveFile(tmpPath, outputPath); err != nil {
		return "", err
	}

	return outputPath, nil
}

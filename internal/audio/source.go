package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Waveform is a decoded mono signal. It belongs to the call that loaded it
// and is dropped once metrics are extracted.
type Waveform struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the length in seconds.
func (w Waveform) Duration() float64 {
	if w.SampleRate <= 0 {
		return 0
	}
	return float64(len(w.Samples)) / float64(w.SampleRate)
}

// Source turns a path into a mono waveform at a fixed target rate.
type Source interface {
	Load(ctx context.Context, path string) (Waveform, error)
}

// FileSource decodes WAV files in-process when they are already PCM at the
// target rate and hands everything else to ffmpeg.
type FileSource struct {
	TargetRate    int
	TempDir       string
	DecodeTimeout time.Duration
	FFmpegPath    string
}

func NewFileSource(targetRate int, tempDir string) *FileSource {
	return &FileSource{
		TargetRate:    targetRate,
		TempDir:       tempDir,
		DecodeTimeout: DefaultDecodeTimeout,
	}
}

func (s *FileSource) Load(ctx context.Context, path string) (Waveform, error) {
	if _, err := os.Stat(path); err != nil {
		return Waveform{}, err
	}

	if strings.EqualFold(filepath.Ext(path), ".wav") {
		format, err := ReadWavFormat(path)
		if err == nil && format.SampleRate == s.TargetRate && format.AudioFormat == wavFormatPCM {
			samples, rate, err := ReadWavAsFloat64(path)
			if err == nil {
				return Waveform{Samples: samples, SampleRate: rate}, nil
			}
		}
	}

	return s.loadViaFFmpeg(ctx, path)
}

func (s *FileSource) loadViaFFmpeg(ctx context.Context, path string) (Waveform, error) {
	if err := ctx.Err(); err != nil {
		return Waveform{}, err
	}

	// Per-call directory: two inputs with the same base name in different
	// folders must not collide.
	workDir, err := os.MkdirTemp(s.TempDir, "speechgate-*")
	if err != nil {
		return Waveform{}, fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	wavPath, err := ConvertToMonoWAV(ctx, path, workDir, ConvertWAVConfig{
		SampleRate: s.TargetRate,
		Timeout:    s.DecodeTimeout,
		FFmpegPath: s.FFmpegPath,
	})
	if err != nil {
		return Waveform{}, fmt.Errorf("audio conversion failed: %w", err)
	}

	samples, rate, err := ReadWavAsFloat64(wavPath)
	if err != nil {
		return Waveform{}, fmt.Errorf("reading converted WAV: %w", err)
	}
	if rate != s.TargetRate {
		return Waveform{}, fmt.Errorf("converted WAV has rate %d, want %d", rate, s.TargetRate)
	}

	return Waveform{Samples: samples, SampleRate: rate}, nil
}

package report

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"os"
	"path/filepath"
	"strings"

	"github.com/eligwz/spectrogram"
)

const (
	SpectrogramWidth  = 2048
	SpectrogramHeight = 512
)

// SpectrogramPaths maps each audio file to a PNG under outDir, mirroring the
// files' layout below their deepest common directory. Files that share a base
// name in different folders therefore never overwrite each other.
func SpectrogramPaths(outDir string, audioPaths []string) []string {
	abs := make([]string, len(audioPaths))
	for i, p := range audioPaths {
		a, err := filepath.Abs(p)
		if err != nil {
			a = filepath.Clean(p)
		}
		abs[i] = a
	}

	root := commonDir(abs)
	out := make([]string, len(abs))
	for i, a := range abs {
		rel, err := filepath.Rel(root, a)
		if err != nil || rel == "." {
			rel = filepath.Base(a)
		}
		out[i] = filepath.Join(outDir, rel+".png")
	}
	return out
}

// commonDir is the deepest directory containing every path.
func commonDir(paths []string) string {
	if len(paths) == 0 {
		return ""
	}
	sep := string(filepath.Separator)
	common := strings.Split(filepath.Dir(paths[0]), sep)
	for _, p := range paths[1:] {
		parts := strings.Split(filepath.Dir(p), sep)
		n := 0
		for n < len(common) && n < len(parts) && common[n] == parts[n] {
			n++
		}
		common = common[:n]
	}
	dir := strings.Join(common, sep)
	if dir == "" {
		return sep
	}
	return dir
}

// WriteSpectrogram renders a linear-magnitude spectrogram of samples to a PNG
// at path. Width and height of zero fall back to the defaults.
func WriteSpectrogram(path string, samples []float64, sampleRate, width, height int) error {
	if len(samples) == 0 {
		return errors.New("no samples to render")
	}
	if sampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	if width <= 0 {
		width = SpectrogramWidth
	}
	if height <= 0 {
		height = SpectrogramHeight
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating spectrogram dir: %w", err)
	}

	img := spectrogram.NewImage128(image.Rect(0, 0, width, height))
	black := spectrogram.ParseColor("000000")
	draw.Draw(img, img.Bounds(), image.NewUniform(black), image.Point{}, draw.Src)

	// Hamming window, FFT, magnitude, linear scale
	spectrogram.Drawfft(img, samples, uint32(sampleRate), uint32(height), false, false, true, false)

	if err := spectrogram.SavePng(img, path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

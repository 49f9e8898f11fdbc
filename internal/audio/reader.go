package audio

import (
	"errors"
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrUnsupportedFormat is returned for WAV files the in-process decoder
// cannot read (float PCM, 8-bit, compressed codecs).
var ErrUnsupportedFormat = errors.New("unsupported WAV format")

const wavFormatPCM = 1

// WavFormat holds the format information of a decoded file
type WavFormat struct {
	AudioFormat   uint16
	NumChannels   int
	SampleRate    int
	BitsPerSample int
}

// pcmScale returns the factor that maps signed integer samples of the given
// depth into [-1, 1).
func pcmScale(bitDepth int) (float64, error) {
	switch bitDepth {
	case 16, 24, 32:
		return 1.0 / float64(int64(1)<<(bitDepth-1)), nil
	default:
		return 0, fmt.Errorf("%w: %d bits per sample", ErrUnsupportedFormat, bitDepth)
	}
}

// convertMonoToFloat64 converts mono integer samples to float64
func convertMonoToFloat64(samples []int, scale float64) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = float64(s) * scale
	}
	return out
}

// downmixToMono averages interleaved channels into one float64 channel
func downmixToMono(samples []int, numChannels int, scale float64) []float64 {
	frames := len(samples) / numChannels
	out := make([]float64, frames)
	inv := 1.0 / float64(numChannels)
	for i := 0; i < frames; i++ {
		var sum float64
		base := i * numChannels
		for c := 0; c < numChannels; c++ {
			sum += float64(samples[base+c])
		}
		out[i] = sum * scale * inv
	}
	return out
}

// convertToMonoFloat64 converts interleaved integer PCM to mono float64 samples normalized to [-1, 1]
func convertToMonoFloat64(samples []int, numChannels, bitDepth int) ([]float64, error) {
	scale, err := pcmScale(bitDepth)
	if err != nil {
		return nil, err
	}

	switch {
	case numChannels == 1:
		return convertMonoToFloat64(samples, scale), nil
	case numChannels > 1:
		return downmixToMono(samples, numChannels, scale), nil
	default:
		return nil, fmt.Errorf("%w: %d channels", ErrUnsupportedFormat, numChannels)
	}
}

// ReadWavFormat returns the header information without decoding samples.
func ReadWavFormat(path string) (WavFormat, error) {
	f, err := os.Open(path)
	if err != nil {
		return WavFormat{}, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	d.ReadInfo()
	if err := d.Err(); err != nil {
		return WavFormat{}, fmt.Errorf("reading WAV header: %w", err)
	}
	if !d.IsValidFile() {
		return WavFormat{}, errors.New("not a WAV/RIFF file")
	}

	return WavFormat{
		AudioFormat:   d.WavAudioFormat,
		NumChannels:   int(d.NumChans),
		SampleRate:    int(d.SampleRate),
		BitsPerSample: int(d.BitDepth),
	}, nil
}

// ReadWavAsFloat64 reads a PCM WAV file and returns mono, normalized
// samples in the range [-1,1] and the sample rate.
func ReadWavAsFloat64(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, 0, errors.New("not a WAV/RIFF file")
	}
	if d.WavAudioFormat != wavFormatPCM {
		return nil, 0, fmt.Errorf("%w: audio format %d", ErrUnsupportedFormat, d.WavAudioFormat)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decoding PCM samples: %w", err)
	}

	numChannels := int(d.NumChans)
	if buf.Format != nil && buf.Format.NumChannels > 0 {
		numChannels = buf.Format.NumChannels
	}

	mono, err := convertToMonoFloat64(buf.Data, numChannels, int(d.BitDepth))
	if err != nil {
		return nil, 0, err
	}

	return mono, int(d.SampleRate), nil
}

// WriteWav encodes mono float64 samples in [-1,1] as 16-bit PCM. Values
// outside the range are clamped to full scale.
func WriteWav(path string, samples []float64, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	data := make([]int, len(samples))
	for i, s := range samples {
		v := s * 32768.0
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		data[i] = int(v)
	}

	enc := wav.NewEncoder(f, sampleRate, 16, 1, wavFormatPCM)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		f.Close()
		return fmt.Errorf("encoding WAV: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("finalizing WAV: %w", err)
	}
	return f.Close()
}

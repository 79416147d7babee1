package audio

import (
	"encoding/binary"
	"math"
)

const (
	// DefaultSampleRate is assumed when a caller does not specify a rate.
	DefaultSampleRate = 24000

	// DefaultLowPassCutoff is the default low-pass cutoff frequency in Hz.
	DefaultLowPassCutoff = 8000
)

// DecodeToMonoFloat32 decodes a raw captured sample into canonical mono
// float32 samples in [-1.0, 1.0]. The output sample rate always equals the
// input rate; this path never resamples. Multichannel input is downmixed to
// mono by the unweighted mean of all channels per frame.
//
// Unsupported bit depths yield an empty result rather than an error: a single
// malformed frame must not halt a continuously running capture pipeline.
func DecodeToMonoFloat32(sample Sample) []float32 {
	if len(sample.Data) == 0 || sample.Format.Channels < 1 {
		return nil
	}

	var samples []float32

	switch sample.Format.BitsPerSample {
	case BitDepth16:
		sampleCount := len(sample.Data) / 2
		samples = make([]float32, 0, sampleCount)
		for i := 0; i < sampleCount; i++ {
			v := int16(binary.LittleEndian.Uint16(sample.Data[i*2:]))
			samples = append(samples, float32(v)/32768.0)
		}

	case BitDepth32:
		frameCount := len(sample.Data) / (4 * sample.Format.Channels)
		totalSamples := frameCount * sample.Format.Channels

		if sample.Format.IsFloat {
			if sample.Format.IsNonInterleaved && sample.Format.Channels > 1 {
				samples = interleavePlanarFloat32(sample.Data, sample.Format.Channels, frameCount)
			} else {
				samples = make([]float32, 0, totalSamples)
				for i := 0; i < totalSamples; i++ {
					bits := binary.LittleEndian.Uint32(sample.Data[i*4:])
					samples = append(samples, math.Float32frombits(bits))
				}
			}
		} else {
			samples = make([]float32, 0, totalSamples)
			for i := 0; i < totalSamples; i++ {
				v := int32(binary.LittleEndian.Uint32(sample.Data[i*4:]))
				samples = append(samples, float32(v)/2147483648.0)
			}
		}

	default:
		// Unsupported bit depth: no audio produced this call.
		return nil
	}

	if sample.Format.Channels > 1 {
		return mixdownMono(samples, sample.Format.Channels)
	}
	return samples
}

// DecodeToPCM16 decodes a raw captured sample into canonical 16-bit PCM.
// When the source is multichannel and targetChannels is 1, interleaved sample
// pairs are averaged stereo-style. No resampling or filtering is applied;
// those are separate, explicitly invoked operations.
//
// Unsupported bit depths yield an empty result rather than an error.
func DecodeToPCM16(sample Sample, targetChannels int) []int16 {
	if len(sample.Data) == 0 || sample.Format.Channels < 1 {
		return nil
	}

	var samples []int16

	switch sample.Format.BitsPerSample {
	case BitDepth16:
		sampleCount := len(sample.Data) / 2
		samples = make([]int16, 0, sampleCount)
		for i := 0; i < sampleCount; i++ {
			samples = append(samples, int16(binary.LittleEndian.Uint16(sample.Data[i*2:])))
		}

	case BitDepth32:
		frameCount := len(sample.Data) / (4 * sample.Format.Channels)
		totalSamples := frameCount * sample.Format.Channels

		if sample.Format.IsFloat {
			var floats []float32
			if sample.Format.IsNonInterleaved && sample.Format.Channels > 1 {
				floats = interleavePlanarFloat32(sample.Data, sample.Format.Channels, frameCount)
			} else {
				floats = make([]float32, 0, totalSamples)
				for i := 0; i < totalSamples; i++ {
					bits := binary.LittleEndian.Uint32(sample.Data[i*4:])
					floats = append(floats, math.Float32frombits(bits))
				}
			}
			samples = make([]int16, 0, len(floats))
			for _, f := range floats {
				samples = append(samples, Float32ToInt16(f))
			}
		} else {
			samples = make([]int16, 0, totalSamples)
			for i := 0; i < totalSamples; i++ {
				v := int32(binary.LittleEndian.Uint32(sample.Data[i*4:]))
				// Fast narrowing; low-order precision is discarded.
				samples = append(samples, int16(v>>16))
			}
		}

	case BitDepth24:
		sampleCount := len(sample.Data) / 3
		samples = make([]int16, 0, sampleCount)
		for i := 0; i < sampleCount; i++ {
			v := int32(sample.Data[i*3]) |
				int32(sample.Data[i*3+1])<<8 |
				int32(sample.Data[i*3+2])<<16

			// Sign-extend the 24-bit value.
			if v&0x800000 != 0 {
				v |= ^int32(0xFFFFFF)
			}

			samples = append(samples, int16(v>>8))
		}

	default:
		return nil
	}

	if sample.Format.Channels > 1 && targetChannels == 1 {
		samples = StereoToMono(samples)
	}

	return samples
}

// Float32ToInt16 clamps a float sample to [-1.0, 1.0] and converts it to a
// 16-bit sample with round-to-nearest scaling. Full-scale positive input maps
// to 32767 so the result always fits the int16 range.
func Float32ToInt16(f float32) int16 {
	if f > 1.0 {
		f = 1.0
	} else if f < -1.0 {
		f = -1.0
	}

	v := math.Round(float64(f) * 32768.0)
	if v > 32767 {
		v = 32767
	} else if v < -32768 {
		v = -32768
	}
	return int16(v)
}

// interleavePlanarFloat32 re-interleaves non-interleaved (planar) float32
// data. Each channel occupies a contiguous plane of frameCount samples, so
// the plane offset for channel ch is ch*frameCount.
func interleavePlanarFloat32(data []byte, channels, frameCount int) []float32 {
	samples := make([]float32, 0, frameCount*channels)
	for frame := 0; frame < frameCount; frame++ {
		for ch := 0; ch < channels; ch++ {
			offset := (ch*frameCount + frame) * 4
			bits := binary.LittleEndian.Uint32(data[offset:])
			samples = append(samples, math.Float32frombits(bits))
		}
	}
	return samples
}

// mixdownMono reduces interleaved multichannel samples to mono by the
// unweighted arithmetic mean of all channels per frame.
func mixdownMono(samples []float32, channels int) []float32 {
	frameCount := len(samples) / channels
	mono := make([]float32, 0, frameCount)
	for frame := 0; frame < frameCount; frame++ {
		var sum float32
		for ch := 0; ch < channels; ch++ {
			sum += samples[frame*channels+ch]
		}
		mono = append(mono, sum/float32(channels))
	}
	return mono
}

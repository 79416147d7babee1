package audio

import "math"

// Resample converts PCM16 audio from one sample rate to another using linear
// interpolation between the two nearest input samples. It returns the input
// unchanged when the rates are equal. This is a separate, explicitly invoked
// operation; the decode paths never resample.
func Resample(input []int16, inputRate, outputRate int) []int16 {
	if inputRate == outputRate {
		return input
	}
	if len(input) == 0 {
		return nil
	}

	ratio := float64(inputRate) / float64(outputRate)
	outputLength := int(float64(len(input)) / ratio)

	output := make([]int16, 0, outputLength)
	for i := 0; i < outputLength; i++ {
		sourceIndex := float64(i) * ratio
		index := int(sourceIndex)

		if index >= len(input)-1 {
			output = append(output, input[len(input)-1])
		} else {
			fraction := sourceIndex - float64(index)
			interpolated := linearInterpolate(
				float32(input[index]),
				float32(input[index+1]),
				float32(fraction),
			)
			output = append(output, int16(interpolated))
		}
	}

	return output
}

// StereoToMono averages adjacent interleaved sample pairs with integer
// arithmetic. Both operands fit 16 bits so the int32 sum cannot overflow.
// Odd-length input is not valid stereo data and yields an empty result.
func StereoToMono(stereo []int16) []int16 {
	if len(stereo)%2 != 0 {
		return nil
	}

	mono := make([]int16, 0, len(stereo)/2)
	for i := 0; i < len(stereo); i += 2 {
		left := int32(stereo[i])
		right := int32(stereo[i+1])
		mono = append(mono, int16((left+right)>>1))
	}

	return mono
}

// RMSLevel returns the root-mean-square level of the samples normalized to
// [-1, 1]. Empty input reports 0.
func RMSLevel(samples []int16) float32 {
	if len(samples) == 0 {
		return 0
	}

	var sum float64
	for _, sample := range samples {
		normalized := float64(sample) / 32768.0
		sum += normalized * normalized
	}

	return float32(math.Sqrt(sum / float64(len(samples))))
}

// LowPassFilter applies a single-pole IIR low-pass filter with the given
// cutoff frequency. The first output sample equals the first input sample;
// each subsequent output is previous + alpha*(current - previous), truncated
// to int16. A non-positive cutoff or sample rate returns the input unchanged.
func LowPassFilter(input []int16, cutoffFreq float32, sampleRate int) []int16 {
	if len(input) == 0 {
		return nil
	}
	if cutoffFreq <= 0 || sampleRate <= 0 {
		return input
	}

	rc := 1.0 / (2.0 * math.Pi * float64(cutoffFreq))
	dt := 1.0 / float64(sampleRate)
	alpha := float32(dt / (rc + dt))

	output := make([]int16, 0, len(input))
	previous := float32(input[0])
	output = append(output, input[0])

	for i := 1; i < len(input); i++ {
		current := float32(input[i])
		filtered := previous + alpha*(current-previous)
		previous = filtered
		output = append(output, int16(filtered))
	}

	return output
}

// MovingAverage applies a centered box filter of the given window, clamped at
// the sequence boundaries. Empty input or a non-positive window returns the
// input unchanged.
func MovingAverage(input []int16, windowSize int) []int16 {
	if len(input) == 0 || windowSize <= 0 {
		return input
	}

	output := make([]int16, 0, len(input))
	for i := 0; i < len(input); i++ {
		start := 0
		if i >= windowSize/2 {
			start = i - windowSize/2
		}
		end := i + windowSize/2 + 1
		if end > len(input) {
			end = len(input)
		}

		sum := 0
		for j := start; j < end; j++ {
			sum += int(input[j])
		}
		output = append(output, int16(sum/(end-start)))
	}

	return output
}

// linearInterpolate returns the value a fraction t of the way from a to b.
func linearInterpolate(a, b, t float32) float32 {
	return a + t*(b-a)
}

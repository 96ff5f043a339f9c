package audio

import "math"

const (
	ToneFrequency = 440.0
	ToneAmplitude = 0.5
)

// GenerateSine produces a sine wave at the given frequency and duration
// as float32 mono samples at the capture sample rate.
func GenerateSine(durationSec, frequency float64) []float32 {
	numSamples := int(durationSec * SampleRate)
	samples := make([]float32, numSamples)
	for i := range samples {
		t := float64(i) / SampleRate
		samples[i] = float32(ToneAmplitude * math.Sin(2*math.Pi*frequency*t))
	}
	return samples
}

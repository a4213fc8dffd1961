package audio

import "math"

// RMS computes root mean square energy of a PCM buffer, normalized to 0-1.
func RMS(pcm []byte, bitDepth int) float64 {
	if len(pcm) == 0 {
		return 0
	}

	var sum float64
	var count int

	switch bitDepth {
	case 16:
		// 16-bit signed PCM
		for i := 0; i+1 < len(pcm); i += 2 {
			sample := int16(pcm[i]) | int16(pcm[i+1])<<8
			normalized := float64(sample) / 32768.0
			sum += normalized * normalized
			count++
		}
	case 32:
		// 32-bit float PCM
		for i := 0; i+3 < len(pcm); i += 4 {
			bits := uint32(pcm[i]) | uint32(pcm[i+1])<<8 | uint32(pcm[i+2])<<16 | uint32(pcm[i+3])<<24
			sample := math.Float32frombits(bits)
			sum += float64(sample * sample)
			count++
		}
	default:
		// Assume 8-bit unsigned PCM
		for _, b := range pcm {
			normalized := (float64(b) - 128.0) / 128.0
			sum += normalized * normalized
			count++
		}
	}

	if count == 0 {
		return 0
	}

	return math.Sqrt(sum / float64(count))
}

// IsSilence reports whether a PCM buffer stays under the energy threshold.
// A fixed-duration recording of an idle room still produces a full buffer,
// so the gate is what turns "recorded nothing worth hearing" into no speech.
func IsSilence(pcm []byte, bitDepth int, threshold float64) bool {
	return RMS(pcm, bitDepth) < threshold
}

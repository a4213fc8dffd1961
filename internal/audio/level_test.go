package audio

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// sine generates a 16-bit mono tone for level tests.
func sine(samples int, amplitude float64) []byte {
	pcm := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		v := amplitude * math.Sin(2*math.Pi*440*float64(i)/16000)
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(v*32767)))
	}
	return pcm
}

func TestRMSSilentBuffer(t *testing.T) {
	silent := make([]byte, 16000*2)
	assert.InDelta(t, 0, RMS(silent, 16), 0.0001)
	assert.True(t, IsSilence(silent, 16, 0.01))
}

func TestRMSTone(t *testing.T) {
	tone := sine(16000, 0.5)
	rms := RMS(tone, 16)

	// RMS of a 0.5-amplitude sine is about 0.35
	assert.InDelta(t, 0.35, rms, 0.05)
	assert.False(t, IsSilence(tone, 16, 0.01))
}

func TestRMSEmptyBuffer(t *testing.T) {
	assert.Equal(t, 0.0, RMS(nil, 16))
}

func TestIsSilenceThresholdBoundary(t *testing.T) {
	quiet := sine(16000, 0.005)
	loud := sine(16000, 0.2)

	assert.True(t, IsSilence(quiet, 16, 0.01))
	assert.False(t, IsSilence(loud, 16, 0.01))
}

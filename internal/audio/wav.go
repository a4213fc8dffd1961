package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"
)

// WAVInfo describes a parsed PCM WAV buffer.
type WAVInfo struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Data       []byte
}

// EncodeWAV wraps raw little-endian PCM samples in a RIFF/WAVE container.
func EncodeWAV(pcm []byte, sampleRate, channels, bitDepth int) []byte {
	blockAlign := channels * bitDepth / 8
	byteRate := sampleRate * blockAlign

	buf := bytes.NewBuffer(make([]byte, 0, 44+len(pcm)))
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(buf, binary.LittleEndian, uint16(channels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(bitDepth))

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	return buf.Bytes()
}

// ParseWAV reads a PCM WAV buffer, scanning chunks until the data chunk.
// Recorders differ in what they put between fmt and data (LIST, fact),
// so the offset of the sample data is not assumed.
func ParseWAV(wav []byte) (*WAVInfo, error) {
	if len(wav) < 12 || string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%w: missing RIFF/WAVE header", ErrInvalidFormat)
	}

	info := &WAVInfo{}
	haveFmt := false
	pos := 12
	for pos+8 <= len(wav) {
		chunkID := string(wav[pos : pos+4])
		chunkSize := int(binary.LittleEndian.Uint32(wav[pos+4 : pos+8]))
		body := pos + 8
		if body+chunkSize > len(wav) {
			chunkSize = len(wav) - body
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return nil, fmt.Errorf("%w: fmt chunk too short", ErrInvalidFormat)
			}
			format := binary.LittleEndian.Uint16(wav[body : body+2])
			if format != 1 {
				return nil, fmt.Errorf("%w: non-PCM format %d", ErrInvalidFormat, format)
			}
			info.Channels = int(binary.LittleEndian.Uint16(wav[body+2 : body+4]))
			info.SampleRate = int(binary.LittleEndian.Uint32(wav[body+4 : body+8]))
			info.BitDepth = int(binary.LittleEndian.Uint16(wav[body+14 : body+16]))
			haveFmt = true
		case "data":
			if !haveFmt {
				return nil, fmt.Errorf("%w: data chunk before fmt", ErrInvalidFormat)
			}
			info.Data = wav[body : body+chunkSize]
			return info, nil
		}

		// Chunks are word-aligned
		if chunkSize%2 == 1 {
			chunkSize++
		}
		pos = body + chunkSize
	}

	return nil, fmt.Errorf("%w: no data chunk", ErrInvalidFormat)
}

// ExtractPCM returns the raw sample data of a PCM WAV buffer.
func ExtractPCM(wav []byte) ([]byte, error) {
	info, err := ParseWAV(wav)
	if err != nil {
		return nil, err
	}
	return info.Data, nil
}

// PCMDuration computes the play time of a raw PCM buffer.
func PCMDuration(n, sampleRate, channels, bitDepth int) time.Duration {
	blockAlign := channels * bitDepth / 8
	if sampleRate <= 0 || blockAlign <= 0 {
		return 0
	}
	frames := n / blockAlign
	return time.Duration(frames) * time.Second / time.Duration(sampleRate)
}

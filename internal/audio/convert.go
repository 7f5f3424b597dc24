package audio

import (
	"encoding/binary"
	"fmt"
)

// pcm16ToFloat64 converts little-endian 16-bit PCM bytes to samples in [-1, 1).
func pcm16ToFloat64(data []byte) []float64 {
	samples := make([]float64, len(data)/2)
	for i := 0; i < len(samples); i++ {
		s := int16(binary.LittleEndian.Uint16(data[i*2 : i*2+2]))
		samples[i] = float64(s) / 32768.0
	}
	return samples
}

// float64ToPCM16 converts samples in [-1, 1] to little-endian 16-bit PCM bytes.
// Out of range samples are clipped.
func float64ToPCM16(samples []float64) []byte {
	data := make([]byte, len(samples)*2)
	for i, v := range samples {
		s := int(v * 32767.0)
		if s > 32767 {
			s = 32767
		} else if s < -32768 {
			s = -32768
		}
		binary.LittleEndian.PutUint16(data[i*2:i*2+2], uint16(int16(s)))
	}
	return data
}

// sampleDivisor returns the normalization divisor for the given bit depth.
func sampleDivisor(bitDepth int) (float64, error) {
	switch bitDepth {
	case 16:
		return 32768.0, nil
	case 24:
		return 8388608.0, nil
	case 32:
		return 2147483648.0, nil
	default:
		return 0, fmt.Errorf("unsupported bit depth: %d", bitDepth)
	}
}

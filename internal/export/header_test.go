package export

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parseHeaderBytes extracts the byte values back out of the generated array.
func parseHeaderBytes(t *testing.T, header string) []byte {
	t.Helper()
	start := strings.Index(header, "{")
	end := strings.Index(header, "}")
	require.Greater(t, end, start)

	var out []byte
	for _, tok := range strings.Split(header[start+1:end], ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		v, err := strconv.ParseUint(strings.TrimPrefix(tok, "0x"), 16, 8)
		require.NoError(t, err, "token %q", tok)
		out = append(out, byte(v))
	}
	return out
}

func TestGenerateHeaderRoundTripsBytes(t *testing.T) {
	raw := make([]byte, 300)
	for i := range raw {
		raw[i] = byte(i * 7)
	}

	header := GenerateHeader(raw, "drone_detector.vqm", "drone_detector_vqm")
	assert.Equal(t, raw, parseHeaderBytes(t, header),
		"hex dump must reproduce the artifact bytes in file order")
}

func TestGenerateHeaderLayout(t *testing.T) {
	raw := []byte{0x00, 0x01, 0xfe, 0xff}
	header := GenerateHeader(raw, "model.vqm", "my_model")

	assert.Contains(t, header, "#ifndef MODEL_DATA_H")
	assert.Contains(t, header, "#define MODEL_DATA_H")
	assert.Contains(t, header, "#endif // MODEL_DATA_H")
	assert.Contains(t, header, "alignas(8) const unsigned char my_model[] = {")
	assert.Contains(t, header, "const unsigned int my_model_len = 4;")
	assert.Contains(t, header, "Auto-generated from model.vqm")
	assert.Contains(t, header, "    0x00, 0x01, 0xfe, 0xff\n")
}

func TestGenerateHeaderTwelveBytesPerLine(t *testing.T) {
	raw := make([]byte, 30)
	header := GenerateHeader(raw, "m.vqm", "m")

	var dataLines []string
	for _, line := range strings.Split(header, "\n") {
		if strings.HasPrefix(line, "    0x") {
			dataLines = append(dataLines, line)
		}
	}
	require.Len(t, dataLines, 3)
	assert.Equal(t, 12, strings.Count(dataLines[0], "0x"))
	assert.Equal(t, 12, strings.Count(dataLines[1], "0x"))
	assert.Equal(t, 6, strings.Count(dataLines[2], "0x"))
	// Continuation lines end with a comma, the last one does not.
	assert.True(t, strings.HasSuffix(dataLines[0], ","))
	assert.False(t, strings.HasSuffix(dataLines[2], ","))
}

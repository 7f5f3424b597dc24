package export

import (
	"fmt"
	"strings"
)

// GenerateHeader renders the artifact bytes as a C header for firmware
// builds: an alignas(8) byte array named arrayName plus a matching _len
// constant, twelve bytes per line. The hex dump is byte-exact in file order
// so the embedded copy decodes identically to the .vqm on disk.
func GenerateHeader(raw []byte, sourceName, arrayName string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "/**\n")
	fmt.Fprintf(&b, " * VARTA - ML Model Data\n")
	fmt.Fprintf(&b, " * Auto-generated from %s\n", sourceName)
	fmt.Fprintf(&b, " * \n")
	fmt.Fprintf(&b, " * Model size: %d bytes (%.1f KB)\n", len(raw), float64(len(raw))/1024)
	fmt.Fprintf(&b, " */\n\n")
	fmt.Fprintf(&b, "#ifndef MODEL_DATA_H\n")
	fmt.Fprintf(&b, "#define MODEL_DATA_H\n\n")
	fmt.Fprintf(&b, "alignas(8) const unsigned char %s[] = {\n", arrayName)

	for i := 0; i < len(raw); i += 12 {
		end := i + 12
		if end > len(raw) {
			end = len(raw)
		}
		parts := make([]string, 0, 12)
		for _, v := range raw[i:end] {
			parts = append(parts, fmt.Sprintf("0x%02x", v))
		}
		b.WriteString("    " + strings.Join(parts, ", "))
		if end < len(raw) {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "};\n\n")
	fmt.Fprintf(&b, "const unsigned int %s_len = %d;\n\n", arrayName, len(raw))
	fmt.Fprintf(&b, "#endif // MODEL_DATA_H\n")
	return b.String()
}

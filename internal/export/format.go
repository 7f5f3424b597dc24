package export

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/varta-systems/varta-go/internal/conf"
)

// VQM1 is a little-endian container for the quantized model: a header with
// the input and output tensor descriptors and per-stage activation scales,
// followed by a length-prefixed tensor table. Files are immutable once
// written; the verifier re-reads the bytes it just produced.
const (
	formatMagic   = "VQM1"
	formatVersion = uint16(1)

	// Element types in tensor descriptors.
	DTypeInt8    = uint8(0)
	DTypeFloat32 = uint8(1)
)

// TensorData is one entry in the artifact's tensor table. Exactly one of
// Int8 and F32 is populated, according to DType. Scale is the symmetric
// quantization scale for int8 tensors and zero otherwise.
type TensorData struct {
	Name  string
	DType uint8
	Dims  []int32
	Scale float32
	Int8  []int8
	F32   []float32
}

func (t *TensorData) elements() int {
	n := 1
	for _, d := range t.Dims {
		n *= int(d)
	}
	return n
}

// Artifact is the decoded form of a VQM1 file.
type Artifact struct {
	InputShape  []int32
	OutputShape []int32
	ActScales   []float32
	Tensors     []TensorData
}

// Tensor returns the named table entry.
func (a *Artifact) Tensor(name string) (*TensorData, error) {
	for i := range a.Tensors {
		if a.Tensors[i].Name == name {
			return &a.Tensors[i], nil
		}
	}
	return nil, fmt.Errorf("artifact has no tensor %q", name)
}

// BuildArtifact assembles the container contents from the folded model.
// With quantize set, convolution and dense weights become int8 with symmetric
// per-tensor scales; otherwise weights stay float32. Biases are always
// float32.
func BuildArtifact(fm *FoldedModel, actScales []float32, quantize bool) *Artifact {
	a := &Artifact{
		InputShape:  []int32{1, int32(conf.TimeFrames), int32(conf.MelBins), 1},
		OutputShape: []int32{1, int32(conf.NumClasses)},
		ActScales:   actScales,
	}
	weightTensor := func(name string, dims []int32, w []float64) TensorData {
		if quantize {
			q, scale := QuantizeWeights(w)
			return TensorData{Name: name, DType: DTypeInt8, Dims: dims, Scale: scale, Int8: q}
		}
		return TensorData{Name: name, DType: DTypeFloat32, Dims: dims, F32: toFloat32(w)}
	}
	for _, c := range []*ConvLayer{&fm.Conv1, &fm.Conv2, &fm.Conv3} {
		a.Tensors = append(a.Tensors,
			weightTensor(c.Name+"/w",
				[]int32{int32(c.OutC), int32(c.InC), int32(c.K), int32(c.K)}, c.W),
			TensorData{
				Name:  c.Name + "/b",
				DType: DTypeFloat32,
				Dims:  []int32{int32(c.OutC)},
				F32:   toFloat32(c.B),
			})
	}
	for _, d := range []*DenseLayer{&fm.FC1, &fm.FC2} {
		a.Tensors = append(a.Tensors,
			weightTensor(d.Name+"/w", []int32{int32(d.Out), int32(d.In)}, d.W),
			TensorData{
				Name:  d.Name + "/b",
				DType: DTypeFloat32,
				Dims:  []int32{int32(d.Out)},
				F32:   toFloat32(d.B),
			})
	}
	return a
}

// Encode writes the artifact in VQM1 layout.
func (a *Artifact) Encode(w io.Writer) error {
	var buf bytes.Buffer
	buf.WriteString(formatMagic)
	le := binary.LittleEndian

	writeU16 := func(v uint16) { _ = binary.Write(&buf, le, v) }
	writeU32 := func(v uint32) { _ = binary.Write(&buf, le, v) }
	writeF32 := func(v float32) { _ = binary.Write(&buf, le, v) }
	writeDims := func(dims []int32) {
		buf.WriteByte(uint8(len(dims)))
		for _, d := range dims {
			_ = binary.Write(&buf, le, d)
		}
	}

	writeU16(formatVersion)

	buf.WriteByte(DTypeFloat32)
	writeDims(a.InputShape)
	buf.WriteByte(DTypeFloat32)
	writeDims(a.OutputShape)

	writeU16(uint16(len(a.ActScales)))
	for _, s := range a.ActScales {
		writeF32(s)
	}

	writeU16(uint16(len(a.Tensors)))
	for i := range a.Tensors {
		t := &a.Tensors[i]
		writeU16(uint16(len(t.Name)))
		buf.WriteString(t.Name)
		buf.WriteByte(t.DType)
		writeDims(t.Dims)
		writeF32(t.Scale)

		switch t.DType {
		case DTypeInt8:
			writeU32(uint32(len(t.Int8)))
			for _, v := range t.Int8 {
				buf.WriteByte(byte(v))
			}
		case DTypeFloat32:
			writeU32(uint32(len(t.F32) * 4))
			for _, v := range t.F32 {
				writeU32(math.Float32bits(v))
			}
		default:
			return fmt.Errorf("tensor %s has unknown element type %d", t.Name, t.DType)
		}
	}

	_, err := w.Write(buf.Bytes())
	return err
}

// Decode parses a VQM1 stream, validating the magic, version, and every
// length field against the declared shapes.
func Decode(r io.Reader) (*Artifact, error) {
	le := binary.LittleEndian

	magic := make([]byte, 4)
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, fmt.Errorf("reading magic: %w", err)
	}
	if string(magic) != formatMagic {
		return nil, fmt.Errorf("bad magic %q, want %q", magic, formatMagic)
	}

	var version uint16
	if err := binary.Read(r, le, &version); err != nil {
		return nil, fmt.Errorf("reading version: %w", err)
	}
	if version != formatVersion {
		return nil, fmt.Errorf("unsupported format version %d", version)
	}

	readDesc := func(what string) (uint8, []int32, error) {
		var dtype, ndims uint8
		if err := binary.Read(r, le, &dtype); err != nil {
			return 0, nil, fmt.Errorf("reading %s element type: %w", what, err)
		}
		if err := binary.Read(r, le, &ndims); err != nil {
			return 0, nil, fmt.Errorf("reading %s rank: %w", what, err)
		}
		dims := make([]int32, ndims)
		if err := binary.Read(r, le, dims); err != nil {
			return 0, nil, fmt.Errorf("reading %s shape: %w", what, err)
		}
		for _, d := range dims {
			if d <= 0 {
				return 0, nil, fmt.Errorf("%s has non-positive dimension %d", what, d)
			}
		}
		return dtype, dims, nil
	}

	a := &Artifact{}
	var err error
	var dtype uint8
	if dtype, a.InputShape, err = readDesc("input descriptor"); err != nil {
		return nil, err
	}
	if dtype != DTypeFloat32 {
		return nil, fmt.Errorf("input element type %d, want float32", dtype)
	}
	if dtype, a.OutputShape, err = readDesc("output descriptor"); err != nil {
		return nil, err
	}
	if dtype != DTypeFloat32 {
		return nil, fmt.Errorf("output element type %d, want float32", dtype)
	}

	var nScales uint16
	if err := binary.Read(r, le, &nScales); err != nil {
		return nil, fmt.Errorf("reading activation scale count: %w", err)
	}
	a.ActScales = make([]float32, nScales)
	if err := binary.Read(r, le, a.ActScales); err != nil {
		return nil, fmt.Errorf("reading activation scales: %w", err)
	}

	var nTensors uint16
	if err := binary.Read(r, le, &nTensors); err != nil {
		return nil, fmt.Errorf("reading tensor count: %w", err)
	}
	a.Tensors = make([]TensorData, nTensors)
	for i := range a.Tensors {
		t := &a.Tensors[i]

		var nameLen uint16
		if err := binary.Read(r, le, &nameLen); err != nil {
			return nil, fmt.Errorf("tensor %d: reading name length: %w", i, err)
		}
		name := make([]byte, nameLen)
		if _, err := io.ReadFull(r, name); err != nil {
			return nil, fmt.Errorf("tensor %d: reading name: %w", i, err)
		}
		t.Name = string(name)

		if t.DType, t.Dims, err = readDesc("tensor " + t.Name); err != nil {
			return nil, err
		}
		if err := binary.Read(r, le, &t.Scale); err != nil {
			return nil, fmt.Errorf("tensor %s: reading scale: %w", t.Name, err)
		}

		var dataLen uint32
		if err := binary.Read(r, le, &dataLen); err != nil {
			return nil, fmt.Errorf("tensor %s: reading data length: %w", t.Name, err)
		}

		switch t.DType {
		case DTypeInt8:
			if int(dataLen) != t.elements() {
				return nil, fmt.Errorf("tensor %s: %d bytes for %d int8 elements", t.Name, dataLen, t.elements())
			}
			raw := make([]byte, dataLen)
			if _, err := io.ReadFull(r, raw); err != nil {
				return nil, fmt.Errorf("tensor %s: reading data: %w", t.Name, err)
			}
			t.Int8 = make([]int8, dataLen)
			for j, b := range raw {
				t.Int8[j] = int8(b)
			}
		case DTypeFloat32:
			if int(dataLen) != t.elements()*4 {
				return nil, fmt.Errorf("tensor %s: %d bytes for %d float32 elements", t.Name, dataLen, t.elements())
			}
			t.F32 = make([]float32, t.elements())
			if err := binary.Read(r, le, t.F32); err != nil {
				return nil, fmt.Errorf("tensor %s: reading data: %w", t.Name, err)
			}
		default:
			return nil, fmt.Errorf("tensor %s: unknown element type %d", t.Name, t.DType)
		}
	}
	return a, nil
}

func toFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}

func toFloat64(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

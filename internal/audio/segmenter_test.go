package audio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSink struct {
	segments []*Segment
	failOn   int // segment index that fails, -1 for none
}

func newCaptureSink() *captureSink {
	return &captureSink{failOn: -1}
}

func (c *captureSink) WriteSegment(seg *Segment) error {
	if seg.Index == c.failOn {
		return errors.New("disk full")
	}
	c.segments = append(c.segments, seg)
	return nil
}

func TestSegmenterEmitsFixedLengthSegments(t *testing.T) {
	sink := newCaptureSink()
	seg := NewSegmenter(100, sink)

	// 3.5 segments of data in uneven chunks.
	samples := make([]float64, 350)
	for i := range samples {
		samples[i] = float64(i)
	}
	seg.Write(samples[:70])
	seg.Write(samples[70:220])
	seg.Write(samples[220:])

	require.Len(t, sink.segments, 3)
	assert.Equal(t, 3, seg.Count())
	assert.Equal(t, 50, seg.PendingSamples())

	for i, s := range sink.segments {
		assert.Equal(t, i, s.Index)
		assert.Len(t, s.Samples, 100)
		assert.Equal(t, 0, s.Label, "unmarked segments must be no_drone")
		// Samples arrive in stream order with no gaps.
		assert.Equal(t, float64(i*100), s.Samples[0])
		assert.Equal(t, float64(i*100+99), s.Samples[99])
	}
}

func TestSegmenterMarkAppliesToNextEmittedSegment(t *testing.T) {
	sink := newCaptureSink()
	seg := NewSegmenter(10, sink)

	// Emit segment 0, then mark while segment 1 is accumulating. The mark
	// must land on segment 1, not retroactively on segment 0.
	seg.Write(make([]float64, 10))
	seg.Mark()
	seg.Write(make([]float64, 10))
	seg.Write(make([]float64, 10))

	require.Len(t, sink.segments, 3)
	assert.Equal(t, 0, sink.segments[0].Label)
	assert.Equal(t, 1, sink.segments[1].Label, "mark must label the next emitted segment")
	assert.Equal(t, 0, sink.segments[2].Label, "mark must reset after one segment")
}

func TestSegmenterMarkOnceLabelsOneSegment(t *testing.T) {
	sink := newCaptureSink()
	seg := NewSegmenter(10, sink)

	// Multiple marks before a single emission still label just that segment.
	seg.Mark()
	seg.Mark()
	seg.Write(make([]float64, 20))

	require.Len(t, sink.segments, 2)
	assert.Equal(t, 1, sink.segments[0].Label)
	assert.Equal(t, 0, sink.segments[1].Label)
}

func TestSegmenterSinkErrorSkipsOnlyFailedSegment(t *testing.T) {
	sink := newCaptureSink()
	sink.failOn = 1
	seg := NewSegmenter(10, sink)

	seg.Write(make([]float64, 30))

	// Segment 1 is lost, the stream continues.
	require.Len(t, sink.segments, 2)
	assert.Equal(t, 0, sink.segments[0].Index)
	assert.Equal(t, 2, sink.segments[1].Index)
	assert.Equal(t, 3, seg.Count())
}

func TestSegmenterNeverEmitsPartialSegment(t *testing.T) {
	sink := newCaptureSink()
	seg := NewSegmenter(100, sink)

	seg.Write(make([]float64, 99))

	assert.Empty(t, sink.segments)
	assert.Equal(t, 99, seg.PendingSamples())
}

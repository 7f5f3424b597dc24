package audio

import (
	"log/slog"
	"sync/atomic"
)

// A Segment is one fixed-length labeled clip, the atomic unit of training data.
type Segment struct {
	Samples []float64
	Label   int // 0 = no_drone, 1 = drone
	Index   int // per-run emission counter
}

// SegmentSink receives emitted segments. Implementations persist the segment;
// an error fails that segment only, never the stream.
type SegmentSink interface {
	WriteSegment(seg *Segment) error
}

// Segmenter accumulates streamed samples into fixed-length segments. It owns
// the pending buffer, the emission counter and the mark flag; the mark flag is
// the only state shared with other goroutines and is accessed atomically.
//
// A mark that lands after a segment has already been emitted applies to the
// segment currently accumulating, not the one just written. This off-by-one
// is documented capture behavior that existing labeled datasets depend on; do
// not change it to "mark applies to the last emitted segment".
type Segmenter struct {
	segmentLen int
	pending    []float64
	count      int
	marked     atomic.Bool
	sink       SegmentSink
}

// NewSegmenter returns a Segmenter emitting segments of segmentLen samples
// into sink.
func NewSegmenter(segmentLen int, sink SegmentSink) *Segmenter {
	return &Segmenter{
		segmentLen: segmentLen,
		pending:    make([]float64, 0, segmentLen*2),
		sink:       sink,
	}
}

// Mark labels the next emitted segment as drone. Safe to call from any
// goroutine.
func (s *Segmenter) Mark() {
	s.marked.Store(true)
}

// Write appends streamed samples and emits one segment for every full
// segment length accumulated, retaining the remainder. The label of an
// emitted segment is the mark state at emission time; the mark then resets.
// Sink failures are logged and skip only the failed segment.
func (s *Segmenter) Write(samples []float64) {
	s.pending = append(s.pending, samples...)

	for len(s.pending) >= s.segmentLen {
		seg := &Segment{
			Samples: make([]float64, s.segmentLen),
			Index:   s.count,
		}
		copy(seg.Samples, s.pending[:s.segmentLen])
		s.pending = s.pending[s.segmentLen:]
		s.count++

		if s.marked.Swap(false) {
			seg.Label = 1
		}

		if err := s.sink.WriteSegment(seg); err != nil {
			slog.Warn("failed to persist segment, skipping",
				"index", seg.Index, "error", err)
		}
	}
}

// Count returns the number of segments emitted so far.
func (s *Segmenter) Count() int {
	return s.count
}

// PendingSamples returns how many samples are buffered toward the next
// segment. A partial segment left at stream end is never emitted.
func (s *Segmenter) PendingSamples() int {
	return len(s.pending)
}

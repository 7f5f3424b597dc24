package audio

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/varta-systems/varta-go/internal/conf"
)

// SegmentWriter persists emitted segments as canonical WAV files named by
// capture timestamp, per-run counter and label at time of write, for example
// 20240131_154210_0042_drone.wav. Files are immutable once written.
type SegmentWriter struct {
	dir   string
	clock func() time.Time

	// OnWritten, when set, is invoked after each successful write with the
	// segment's filename and label. Capture uses it to grow the in-memory
	// label manifest.
	OnWritten func(filename string, label int)
}

// NewSegmentWriter returns a SegmentWriter storing segments under dir.
func NewSegmentWriter(dir string) *SegmentWriter {
	return &SegmentWriter{dir: dir, clock: time.Now}
}

// WriteSegment implements SegmentSink.
func (w *SegmentWriter) WriteSegment(seg *Segment) error {
	name := w.segmentFilename(seg)
	if err := SaveWaveform(filepath.Join(w.dir, name), seg.Samples); err != nil {
		return fmt.Errorf("writing segment %s: %w", name, err)
	}
	if w.OnWritten != nil {
		w.OnWritten(name, seg.Label)
	}
	return nil
}

func (w *SegmentWriter) segmentFilename(seg *Segment) string {
	label := conf.ClassNames[0]
	if seg.Label == 1 {
		label = conf.ClassNames[1]
	}
	return fmt.Sprintf("%s_%04d_%s.wav", w.clock().Format("20060102_150405"), seg.Index, label)
}

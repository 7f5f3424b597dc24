package audio

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/smallnest/ringbuffer"

	"github.com/varta-systems/varta-go/internal/conf"
)

// CaptureOptions configures a live capture run.
type CaptureOptions struct {
	Source   string        // device name or ID substring, empty for default
	Duration time.Duration // total recording time
	Debug    bool
}

// ringCapacity buffers ten seconds of 16-bit mono audio between the device
// callback and the segment consumer.
const ringCapacity = conf.SampleRate * (conf.BitDepth / 8) * 10

// Capture records from the selected device until the duration elapses or quit
// is closed, streaming samples into the segmenter.
//
// The device callback runs on the audio subsystem's own schedule; it only
// pushes raw bytes into a single-producer/single-consumer ring buffer. A
// dedicated consumer goroutine drains the ring, converts to float samples and
// drives the segmenter, so segment emission and file writes never run on the
// audio thread.
func Capture(opts CaptureOptions, seg *Segmenter, quit <-chan struct{}) error {
	malgoCtx, err := malgo.InitContext(preferredBackend(), malgo.ContextConfig{}, func(message string) {
		if opts.Debug {
			slog.Debug("malgo", "message", message)
		}
	})
	if err != nil {
		return fmt.Errorf("audio context init failed: %w", err)
	}
	defer malgoCtx.Uninit()

	infos, err := malgoCtx.Devices(malgo.Capture)
	if err != nil {
		return fmt.Errorf("failed to enumerate capture devices: %w", err)
	}

	source, err := selectCaptureSource(infos, opts.Source)
	if err != nil {
		return err
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = conf.NumChannels
	deviceConfig.SampleRate = conf.SampleRate
	deviceConfig.Alsa.NoMMap = 1
	deviceConfig.Capture.DeviceID = source.Pointer

	rb := ringbuffer.New(ringCapacity).SetBlocking(true)

	// Incremented on the audio thread, read after the device is stopped.
	var dropped atomic.Int64
	onReceiveFrames := deviceDataCallback(rb, &dropped)

	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		chunk := make([]byte, 8192)
		var carry []byte
		for {
			n, err := rb.Read(chunk)
			if n > 0 {
				data := chunk[:n]
				if len(carry) > 0 {
					data = append(carry, data...) //nolint:gocritic // new backing, carry is tiny
					carry = nil
				}
				// A read may split a 16-bit sample, keep the odd byte.
				if len(data)%2 != 0 {
					carry = []byte{data[len(data)-1]}
					data = data[:len(data)-1]
				}
				seg.Write(pcm16ToFloat64(data))
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					slog.Warn("capture ring buffer read failed", "error", err)
				}
				return
			}
		}
	}()

	device, err := malgo.InitDevice(malgoCtx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onReceiveFrames,
	})
	if err != nil {
		rb.CloseWriter()
		<-consumerDone
		return fmt.Errorf("capture device init failed: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		rb.CloseWriter()
		<-consumerDone
		return fmt.Errorf("capture device start failed: %w", err)
	}

	slog.Info("listening on capture source", "name", source.Name, "id", source.ID)

	deadline := time.After(opts.Duration)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-quit:
			slog.Info("stopping capture on stop signal")
			break loop
		case <-deadline:
			slog.Info("recording duration reached", "duration", opts.Duration)
			break loop
		case <-ticker.C:
		}
	}

	if err := device.Stop(); err != nil {
		slog.Warn("capture device stop failed", "error", err)
	}
	device.Uninit()

	// Drain the ring so the consumer finishes in-flight segments, then wait.
	rb.CloseWriter()
	<-consumerDone

	if n := dropped.Load(); n > 0 {
		slog.Warn("capture ring buffer overflowed, audio blocks were dropped", "blocks", n)
	}

	return nil
}

// deviceDataCallback pushes raw device bytes into the ring without ever
// blocking the audio thread; writes into a full ring are counted and dropped.
func deviceDataCallback(rb *ringbuffer.RingBuffer, dropped *atomic.Int64) func(pOutput, pSamples []byte, framecount uint32) {
	return func(pOutput, pSamples []byte, framecount uint32) {
		if _, err := rb.TryWrite(pSamples); err != nil {
			if errors.Is(err, ringbuffer.ErrIsFull) {
				dropped.Add(1)
			}
		}
	}
}

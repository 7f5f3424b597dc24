package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/varta-systems/varta-go/internal/conf"
)

// Player plays mono waveforms through the default output device. Playback is
// a convenience for interactive labeling; construction fails on machines
// without an output device and the caller degrades to silent labeling.
type Player struct {
	ctx *malgo.AllocatedContext
}

// NewPlayer initializes the playback context.
func NewPlayer() (*Player, error) {
	ctx, err := malgo.InitContext(preferredBackend(), malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("playback context init failed: %w", err)
	}
	return &Player{ctx: ctx}, nil
}

// Close releases the playback context.
func (p *Player) Close() {
	if p.ctx != nil {
		_ = p.ctx.Uninit()
		p.ctx = nil
	}
}

// Play blocks until the samples have been played in full.
func (p *Player) Play(samples []float64) error {
	pcm := float64ToPCM16(samples)

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = conf.NumChannels
	deviceConfig.SampleRate = conf.SampleRate

	var (
		pos  int
		once sync.Once
		done = make(chan struct{})
	)

	onSendFrames := func(pOutput, pInput []byte, framecount uint32) {
		n := copy(pOutput, pcm[pos:])
		pos += n
		for i := n; i < len(pOutput); i++ {
			pOutput[i] = 0
		}
		if pos >= len(pcm) {
			once.Do(func() { close(done) })
		}
	}

	device, err := malgo.InitDevice(p.ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onSendFrames,
	})
	if err != nil {
		return fmt.Errorf("playback device init failed: %w", err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return fmt.Errorf("playback device start failed: %w", err)
	}

	clipLen := time.Duration(float64(len(samples)) / float64(conf.SampleRate) * float64(time.Second))
	select {
	case <-done:
		// Small tail so the device flushes the final buffer.
		time.Sleep(50 * time.Millisecond)
	case <-time.After(clipLen + time.Second):
	}

	return device.Stop()
}

package audio

import (
	"encoding/hex"
	"fmt"
	"runtime"
	"strings"
	"unsafe"

	"github.com/gen2brain/malgo"
)

// DeviceInfo describes an available audio capture device.
type DeviceInfo struct {
	Index int
	Name  string
	ID    string
}

// captureSource holds the selected capture device.
type captureSource struct {
	Name    string
	ID      string
	Pointer unsafe.Pointer
}

// preferredBackend returns the malgo backend for the current OS, or an
// empty slice for automatic selection.
func preferredBackend() []malgo.Backend {
	switch runtime.GOOS {
	case "linux":
		return []malgo.Backend{malgo.BackendAlsa}
	case "windows":
		return []malgo.Backend{malgo.BackendWasapi}
	case "darwin":
		return []malgo.Backend{malgo.BackendCoreaudio}
	default:
		return nil
	}
}

// ListCaptureDevices returns the available audio capture devices.
func ListCaptureDevices() ([]DeviceInfo, error) {
	ctx, err := malgo.InitContext(preferredBackend(), malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}
	defer ctx.Uninit()

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate capture devices: %w", err)
	}

	devices := make([]DeviceInfo, 0, len(infos))
	for i, info := range infos {
		decodedID, err := hexToASCII(info.ID.String())
		if err != nil {
			continue
		}
		devices = append(devices, DeviceInfo{Index: i, Name: info.Name(), ID: decodedID})
	}
	return devices, nil
}

// selectCaptureSource picks the capture device matching the source setting.
// An empty source selects the system default device.
func selectCaptureSource(infos []malgo.DeviceInfo, source string) (captureSource, error) {
	var fallback *captureSource

	for i := range infos {
		info := infos[i]
		decodedID, err := hexToASCII(info.ID.String())
		if err != nil {
			continue
		}

		if info.IsDefault == 1 && fallback == nil {
			fallback = &captureSource{Name: info.Name(), ID: decodedID, Pointer: info.ID.Pointer()}
		}

		if source != "" && matchesDeviceSetting(decodedID, info, source) {
			return captureSource{Name: info.Name(), ID: decodedID, Pointer: info.ID.Pointer()}, nil
		}
	}

	if source == "" {
		if fallback != nil {
			return *fallback, nil
		}
		if len(infos) > 0 {
			info := infos[0]
			decodedID, _ := hexToASCII(info.ID.String())
			return captureSource{Name: info.Name(), ID: decodedID, Pointer: info.ID.Pointer()}, nil
		}
		return captureSource{}, fmt.Errorf("no capture devices available")
	}

	return captureSource{}, fmt.Errorf("no capture source matches device setting %q", source)
}

// matchesDeviceSetting checks if the device matches the user's source setting.
func matchesDeviceSetting(decodedID string, info malgo.DeviceInfo, source string) bool {
	return decodedID == source || strings.Contains(info.Name(), source)
}

// hexToASCII converts a hexadecimal string to an ASCII string.
func hexToASCII(hexStr string) (string, error) {
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

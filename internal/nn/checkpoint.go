package nn

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
)

// checkpointVersion guards against loading weight files written by an
// incompatible topology.
const checkpointVersion = 1

type checkpointFile struct {
	Version int
	Params  map[string][]float64
}

// Save writes all parameters, including batch norm running statistics, to
// path. The file is opaque to everything but LoadModel and the export
// pipeline.
func (m *Model) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint file: %w", err)
	}
	defer f.Close()

	cp := checkpointFile{Version: checkpointVersion, Params: m.Snapshot()}
	if err := gob.NewEncoder(f).Encode(&cp); err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	return nil
}

// LoadModel reconstructs the fixed topology and loads weights from path.
func LoadModel(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open model file: %w", err)
	}
	defer f.Close()

	var cp checkpointFile
	if err := gob.NewDecoder(f).Decode(&cp); err != nil {
		return nil, fmt.Errorf("failed to decode model file: %w", err)
	}
	if cp.Version != checkpointVersion {
		return nil, fmt.Errorf("unsupported checkpoint version %d", cp.Version)
	}

	m := New(0)
	if err := m.Restore(cp.Params); err != nil {
		return nil, fmt.Errorf("model file does not match topology: %w", err)
	}
	return m, nil
}

package mesh

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Decode reads a JSON mesh from r and validates it.
func Decode(r io.Reader) (*Mesh, error) {
	var m Mesh
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("mesh: decode: %w", err)
	}
	if err := Validate(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Encode writes m to w as JSON.
func Encode(w io.Writer, m *Mesh) error {
	enc := json.NewEncoder(w)
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("mesh: encode: %w", err)
	}
	return nil
}

// Load reads and validates a JSON mesh file.
func Load(path string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mesh: load: %w", err)
	}
	defer f.Close()
	m, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("mesh: load %s: %w", path, err)
	}
	return m, nil
}

// Save writes m to path as JSON.
func Save(path string, m *Mesh) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("mesh: save: %w", err)
	}
	if err := Encode(f, m); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

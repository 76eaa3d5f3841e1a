package wallet

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/matrixise/xpr-wallet/internal/network"
)

type persisted struct {
	Network network.Name `yaml:"network"`
}

// stateDoc is the state file layout. The selection lives under a single
// application key so other tools may share the file.
type stateDoc struct {
	Wallet persisted `yaml:"xpr-transfer-wallet"`
}

// StateFile persists the selected network. Nothing else is ever written to
// it.
type StateFile struct {
	path string
}

func NewStateFile(path string) *StateFile {
	return &StateFile{path: path}
}

func (f *StateFile) Path() string {
	return f.path
}

// read reports ok only when the file holds a known network.
func (f *StateFile) read() (network.Name, bool, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read state file: %w", err)
	}

	var doc stateDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return "", false, fmt.Errorf("failed to parse state file %s: %w", f.path, err)
	}
	name := doc.Wallet.Network
	if !network.Valid(string(name)) {
		return "", false, nil
	}
	return name, true, nil
}

// Save writes name as the selected network.
func (f *StateFile) Save(name network.Name) error {
	raw, err := yaml.Marshal(stateDoc{Wallet: persisted{Network: name}})
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := os.WriteFile(f.path, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}

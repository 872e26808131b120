// Package manifest loads the declarative dataset list that drives the
// pipeline: an ordered sequence of descriptors in a YAML file.
package manifest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"corpusx/internal/core/domain"
)

// Manifest is the parsed corpus manifest file.
type Manifest struct {
	// DatasetRoot optional root override; flags and ENV win over it
	DatasetRoot string `yaml:"dataset_root,omitempty"`

	// Datasets ordered list of descriptors; order is the processing order
	Datasets []domain.Descriptor `yaml:"datasets"`
}

// Load reads and validates a manifest file.
func Load(path string) (Manifest, error) {
	var m Manifest

	data, err := os.ReadFile(path)
	if err != nil {
		return m, fmt.Errorf("failed to read manifest file: %w", err)
	}

	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("failed to parse manifest file: %w", err)
	}

	if err := domain.ValidateSet(m.Datasets); err != nil {
		return m, fmt.Errorf("invalid manifest %s: %w", path, err)
	}
	return m, nil
}

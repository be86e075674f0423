package agents

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultCrewFile is the crew definition the studio loads from the
// config directory.
const DefaultCrewFile = "crew.yaml"

// Loader handles loading crew definition files.
type Loader struct {
	configDir string
}

// NewLoader creates a new crew loader rooted at the given directory.
func NewLoader(configDir string) *Loader {
	return &Loader{configDir: configDir}
}

// LoadFile loads a crew definition from a specific file path.
// Environment variables in the file are expanded before parsing.
// Supports ${VAR} and ${VAR:-default} syntax.
func (l *Loader) LoadFile(path string) (*CrewFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read crew file: %w", err)
	}

	// Expand environment variables before parsing YAML
	data = ExpandEnvVarsBytes(data)

	var crew CrewFile
	if err := yaml.Unmarshal(data, &crew); err != nil {
		return nil, fmt.Errorf("failed to parse crew YAML: %w", err)
	}

	return &crew, nil
}

// LoadAndValidate loads a crew file and validates it against the known
// model identifiers.
func (l *Loader) LoadAndValidate(path string, knownModels []string) (*CrewFile, error) {
	crew, err := l.LoadFile(path)
	if err != nil {
		return nil, err
	}

	if err := ValidateCrew(crew, knownModels); err != nil {
		return nil, fmt.Errorf("crew validation failed for %s:\n%w", path, err)
	}

	return crew, nil
}

// LoadDirectory scans a directory for YAML crew files and loads them all.
func (l *Loader) LoadDirectory(dir string) ([]*CrewFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read crew directory: %w", err)
	}

	var crews []*CrewFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !isCrewFile(entry.Name()) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		crew, err := l.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", entry.Name(), err)
		}
		crews = append(crews, crew)
	}

	return crews, nil
}

// LoadDefault loads crew.yaml from the config directory, falling back
// to the built-in crew when the file does not exist.
func (l *Loader) LoadDefault() (*CrewFile, error) {
	defaultPath := filepath.Join(l.configDir, DefaultCrewFile)
	if _, err := os.Stat(defaultPath); os.IsNotExist(err) {
		return DefaultCrew(), nil
	}
	return l.LoadFile(defaultPath)
}

func isCrewFile(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}

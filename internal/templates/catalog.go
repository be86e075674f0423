package templates

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var builtinData embed.FS

var (
	// ErrTemplateNotFound indicates an unknown template ID.
	ErrTemplateNotFound = errors.New("template not found")
	// ErrUnknownIndustry indicates an industry with no template set.
	ErrUnknownIndustry = errors.New("unknown industry")
)

// Template is one reusable content blueprint. The body carries
// {{slot}} placeholders filled at render time.
type Template struct {
	ID          string            `yaml:"id" json:"id"`
	Name        string            `yaml:"name" json:"name"`
	ContentType string            `yaml:"content_type" json:"content_type"`
	Description string            `yaml:"description,omitempty" json:"description,omitempty"`
	Structure   []string          `yaml:"structure,omitempty" json:"structure,omitempty"`
	Keywords    []string          `yaml:"keywords,omitempty" json:"keywords,omitempty"`
	Defaults    map[string]string `yaml:"defaults,omitempty" json:"defaults,omitempty"`
	Body        string            `yaml:"body" json:"body"`
}

// industryFile is the on-disk shape of one industry's template set
type industryFile struct {
	Industry  string     `yaml:"industry"`
	Templates []Template `yaml:"templates"`
}

// Catalog holds the per-industry template sets. The built-in data is
// embedded; workspace-local files can be merged over it.
type Catalog struct {
	mu         sync.RWMutex
	industries map[string][]Template
	byID       map[string]Template
}

// NewCatalog loads the built-in per-industry template data.
func NewCatalog() (*Catalog, error) {
	c := &Catalog{
		industries: make(map[string][]Template),
		byID:       make(map[string]Template),
	}

	entries, err := fs.ReadDir(builtinData, "data")
	if err != nil {
		return nil, fmt.Errorf("failed to read built-in templates: %w", err)
	}

	for _, entry := range entries {
		raw, err := builtinData.ReadFile("data/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read built-in template file %s: %w", entry.Name(), err)
		}
		if err := c.mergeFile(raw, entry.Name()); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// LoadDirectory merges workspace-local template files over the
// built-in set. Files must be .yaml or .yml; subdirectories are
// skipped. Templates with a known ID replace the built-in version.
func (c *Catalog) LoadDirectory(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read template directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		raw, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("failed to read template file %s: %w", entry.Name(), err)
		}
		if err := c.mergeFile(raw, entry.Name()); err != nil {
			return err
		}
	}

	return nil
}

func (c *Catalog) mergeFile(raw []byte, name string) error {
	var file industryFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("failed to parse template file %s: %w", name, err)
	}
	if file.Industry == "" {
		return fmt.Errorf("template file %s is missing an industry", name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, tpl := range file.Templates {
		if tpl.ID == "" || tpl.Name == "" {
			return fmt.Errorf("template file %s contains a template without id or name", name)
		}
		if tpl.ContentType == "" {
			return fmt.Errorf("template %s is missing a content type", tpl.ID)
		}

		if existing, ok := c.byID[tpl.ID]; ok {
			// Replace in its industry list, keeping position.
			list := c.industries[c.industryOf(existing)]
			for i := range list {
				if list[i].ID == tpl.ID {
					list[i] = tpl
				}
			}
		} else {
			c.industries[file.Industry] = append(c.industries[file.Industry], tpl)
		}
		c.byID[tpl.ID] = tpl
	}

	return nil
}

// industryOf finds the industry list holding tpl. Caller holds the
// lock.
func (c *Catalog) industryOf(tpl Template) string {
	for industry, list := range c.industries {
		for _, candidate := range list {
			if candidate.ID == tpl.ID {
				return industry
			}
		}
	}
	return ""
}

// Industries returns the known industry names, sorted.
func (c *Catalog) Industries() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, 0, len(c.industries))
	for industry := range c.industries {
		out = append(out, industry)
	}
	sort.Strings(out)
	return out
}

// Templates returns the template set for an industry.
func (c *Catalog) Templates(industry string) ([]Template, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	list, ok := c.industries[strings.ToLower(industry)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownIndustry, industry)
	}

	out := make([]Template, len(list))
	copy(out, list)
	return out, nil
}

// Get returns a template by ID.
func (c *Catalog) Get(id string) (Template, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tpl, ok := c.byID[id]
	if !ok {
		return Template{}, fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}
	return tpl, nil
}

// All returns every template across industries, sorted by ID.
func (c *Catalog) All() []Template {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Template, 0, len(c.byID))
	for _, tpl := range c.byID {
		out = append(out, tpl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

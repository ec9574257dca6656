package templates

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/forgecrm/forgecrm/pkg/logger"
)

// Catalog holds the email templates available to the application. It is
// built once at startup and read-only afterwards, so no locking is needed.
type Catalog struct {
	templates map[string]Template
	order     []string
}

// CatalogOption configures catalog loading.
type CatalogOption func(*catalogConfig)

type catalogConfig struct {
	logger *slog.Logger
}

// WithCatalogLogger sets the logger used to report declared-variable drift.
func WithCatalogLogger(log *slog.Logger) CatalogOption {
	return func(c *catalogConfig) {
		if log != nil {
			c.logger = log
		}
	}
}

// LoadCatalog reads templates from a YAML file.
//
// The file holds a list of templates:
//
//	- id: welcome
//	  name: Welcome
//	  category: onboarding
//	  subject: "Hi {{contact_name}}"
//	  body: "<p>Dear {{contact_name}}, ...</p>"
//	  variables: [contact_name]
//
// Declared variables missing from both subject and body are logged as
// warnings, not errors: the resolver degrades gracefully either way, and a
// stale variables list should not block startup.
func LoadCatalog(path string, opts ...CatalogOption) (*Catalog, error) {
	cfg := &catalogConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Join(ErrCatalogNotReadable, err)
	}

	var list []Template
	if err := yaml.Unmarshal(raw, &list); err != nil {
		return nil, errors.Join(ErrCatalogMalformed, err)
	}

	return NewCatalog(list, opts...)
}

// NewCatalog builds a catalog from an in-memory template list.
// Duplicate or empty IDs are rejected.
func NewCatalog(list []Template, opts ...CatalogOption) (*Catalog, error) {
	cfg := &catalogConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	c := &Catalog{
		templates: make(map[string]Template, len(list)),
		order:     make([]string, 0, len(list)),
	}

	for _, t := range list {
		if t.ID == "" {
			return nil, fmt.Errorf("%w: template %q has no id", ErrCatalogMalformed, t.Name)
		}
		if _, exists := c.templates[t.ID]; exists {
			return nil, fmt.Errorf("%w: duplicate template id %q", ErrCatalogMalformed, t.ID)
		}

		for _, name := range t.Variables {
			token := "{{" + name + "}}"
			if !strings.Contains(t.Subject, token) && !strings.Contains(t.Body, token) {
				cfg.logger.Warn("declared template variable not used",
					logger.TemplateID(t.ID),
					slog.String("variable", name),
				)
			}
		}

		c.templates[t.ID] = t
		c.order = append(c.order, t.ID)
	}

	return c, nil
}

// Get returns the template with the given id.
func (c *Catalog) Get(id string) (Template, error) {
	t, ok := c.templates[id]
	if !ok {
		return Template{}, ErrTemplateNotFound
	}
	return t, nil
}

// All returns every template in file order.
func (c *Catalog) All() []Template {
	out := make([]Template, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.templates[id])
	}
	return out
}

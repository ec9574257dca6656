package templates

import "errors"

var (
	ErrCatalogNotReadable = errors.New("templates.errors.catalog_not_readable")
	ErrCatalogMalformed   = errors.New("templates.errors.catalog_malformed")
	ErrTemplateNotFound   = errors.New("templates.errors.template_not_found")
)

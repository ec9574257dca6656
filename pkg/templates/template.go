package templates

// Template is an email template as stored in the catalog. Templates are
// immutable at runtime: sent emails keep the resolved subject and body, never
// a reference back to the template, so later catalog edits cannot rewrite
// history.
type Template struct {
	ID       string `yaml:"id" json:"id"`
	Name     string `yaml:"name" json:"name"`
	Category string `yaml:"category" json:"category"`
	Subject  string `yaml:"subject" json:"subject"`
	Body     string `yaml:"body" json:"body"` // HTML

	// Variables is the declared set of placeholder names ("contact_name",
	// not "{{contact_name}}"). Advisory metadata for the compose UI; the
	// resolver tolerates drift between this list and the actual tokens.
	Variables []string `yaml:"variables" json:"variables"`
}

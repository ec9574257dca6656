// Package templates provides the email template catalog and placeholder
// resolution.
//
// Templates carry {{name}} placeholders in their subject and body. Resolve
// substitutes every occurrence of each known placeholder and leaves unknown
// ones verbatim, so a mismatched variable list degrades the rendered email
// instead of failing the send. The catalog is loaded from YAML at startup and
// immutable afterwards.
package templates

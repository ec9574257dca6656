// Package pg bootstraps the PostgreSQL layer: pooled connections via pgx/v5
// with startup retries, goose schema migrations, health checks, and helpers
// for classifying common database errors.
package pg

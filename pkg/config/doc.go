// Package config loads typed configuration structs from environment variables.
//
// Structs declare their environment bindings with `env` struct tags (parsed by
// github.com/caarlos0/env) and are loaded once per type for the lifetime of
// the process. A .env file, when present, is read before the first parse via
// github.com/joho/godotenv.
package config

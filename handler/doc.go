// Package handler provides the shared HTTP plumbing for the CRM API: the
// JSON response envelope, error-to-status mapping, request body decoding,
// and bearer-token authentication middleware.
package handler

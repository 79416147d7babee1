// Package server implements the HTTP monitoring API: health, pipeline and
// buffer statistics, sanitized configuration, and Prometheus metrics.
package server

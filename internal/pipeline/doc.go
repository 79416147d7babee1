// Package pipeline composes a capture backend, the format converter, the
// bounded buffer and the voice activity detector into a running capture
// session: raw samples come in through the backend callback, canonical
// chunks go out to a consumer handler.
package pipeline

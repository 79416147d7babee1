// Package capture defines the boundary with platform audio capture backends
// and provides a portable PortAudio implementation. Backends deliver raw
// audio.Sample records through a callback; their OS-level sequencing is not
// part of the capture core.
package capture

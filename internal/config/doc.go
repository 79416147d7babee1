// Package config provides YAML configuration loading and validation for the
// capture audio service: capture backend selection, buffer byte budget, DSP
// defaults, VAD tuning, and the HTTP monitoring surface.
package config

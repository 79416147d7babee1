// Package vad provides energy-based voice activity detection on fixed
// duration PCM16 frames. It validates frame lengths the way the WebRTC VAD
// does (10, 20 or 30 ms) and exposes a simple speech/no-speech decision with
// result smoothing and aggressiveness modes.
package vad

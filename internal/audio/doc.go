// Package audio implements the capture core: raw sample types, the bounded
// byte-budgeted chunk buffer, and the format conversion routines that decode
// native capture encodings into canonical PCM16 and float32 chunks.
package audio

// Package format turns a request and the probed formats into a FormatSpec:
// an ordered fallback chain of stream selectors, the first link the probed
// formats actually satisfy, and the post-processing directive.
//
// Select is pure and never returns an empty spec. Container-preferring
// links (mp4 video, m4a audio) always come before container-agnostic ones.
package format

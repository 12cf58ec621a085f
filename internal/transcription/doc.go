// Package transcription implements the Google Cloud Speech-to-Text v2 client.
// It builds single-shot recognition requests with explicit M4A/AAC decoding,
// classifies provider failures into a fixed set of error kinds, and assembles
// the returned alternatives into a single transcript.
package transcription

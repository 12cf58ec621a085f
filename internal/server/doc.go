// Package server implements the HTTP API: the authenticated /transcribe
// upload endpoint plus health, statistics, configuration, and Prometheus
// endpoints. Error kinds classified by the transcription client are
// translated to HTTP status codes here and nowhere else.
package server

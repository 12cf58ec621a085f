// Package config provides configuration loading and validation for the transcription service.
// Tuning parameters come from an optional YAML file; the recognizer resource name and the
// API key shared secret are resolved from the environment and are required at startup.
package config

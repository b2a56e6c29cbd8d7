package shared

import "time"

// HTTP Client Configuration
const (
	DefaultRequestTimeout  = 120 * time.Second
	DefaultShutdownTimeout = 10 * time.Minute

	// Webhook turns can run for the full length of a model generation.
	DefaultTurnTimeout = 5 * time.Minute
)

// Upstream Model Configuration
const (
	ModelDialTimeout         = 2 * time.Second
	ModelTLSHandshakeTimeout = 2 * time.Second
	ModelRequestTimeout      = 10 * time.Minute
)

// Logging Configuration
const (
	LogFileMaxSizeMB  = 5
	LogFileMaxBackups = 5
)

// API Configuration
const (
	RequestIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	RequestIDLength   = 28
	MinAPIKeyLength   = 10
)

// Masking
const (
	MaskToken = "***"
)

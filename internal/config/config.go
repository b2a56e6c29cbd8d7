// Package config carries the service configuration. Secrets arrive as
// flags populated from the environment in main; non-secret tunables can
// additionally be loaded from a YAML settings file.
package config

import (
	"fmt"

	"plutus-api/internal/shared"
)

// Environment variable names for the critical secrets. Validation and
// the health route report missing configuration under these names.
const (
	EnvGoogleAPIKey    = "GOOGLE_GENERATIVE_AI_API_KEY"
	EnvWebhookSecret   = "LAYERCODE_WEBHOOK_SECRET"
	EnvLayercodeAPIKey = "LAYERCODE_API_KEY"
)

const DefaultAuthorizeEndpoint = "https://api.layercode.com/v1/pipelines/authorize_session"

type Config struct {
	// Critical secrets. The service starts without them but the
	// affected capability fails closed and the health route degrades.
	GoogleAPIKey           string
	LayercodeWebhookSecret string
	LayercodeAPIKey        string

	MetricsAPIKey     string
	AuthorizeEndpoint string
	ListenAddr        string
	Debug             bool

	ServiceName string
	Environment string
	LogDir      string
	LogLevel    string
}

// Validation is the outcome of checking the critical configuration.
type Validation struct {
	Valid   bool
	Missing []string
	Errors  []string
}

// Validate reports which critical keys are absent or implausible. It
// never logs or returns the key values themselves.
func (c Config) Validate() Validation {
	var v Validation

	critical := []struct {
		name  string
		value string
	}{
		{EnvLayercodeAPIKey, c.LayercodeAPIKey},
		{EnvWebhookSecret, c.LayercodeWebhookSecret},
		{EnvGoogleAPIKey, c.GoogleAPIKey},
	}
	for _, key := range critical {
		if key.value == "" {
			v.Missing = append(v.Missing, key.name)
			v.Errors = append(v.Errors, fmt.Sprintf("%s is not set", key.name))
		}
	}

	if c.LayercodeAPIKey != "" && len(c.LayercodeAPIKey) < shared.MinAPIKeyLength {
		v.Errors = append(v.Errors, fmt.Sprintf("%s appears to be invalid (too short)", EnvLayercodeAPIKey))
	}
	if c.GoogleAPIKey != "" && len(c.GoogleAPIKey) < shared.MinAPIKeyLength {
		v.Errors = append(v.Errors, fmt.Sprintf("%s appears to be invalid (too short)", EnvGoogleAPIKey))
	}

	v.Valid = len(v.Missing) == 0 && len(v.Errors) == 0
	return v
}

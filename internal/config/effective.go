package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const redactedPlaceholder = "<redacted>"

// MarshalEffective returns the effective configuration rendered in the
// requested format after redacting credential fields, for diagnostics output.
func (c *Config) MarshalEffective(format string) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("nil config")
	}
	sanitized := c.redactedClone()
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "yaml", "yml":
		return yaml.Marshal(&sanitized)
	case "json":
		return json.MarshalIndent(&sanitized, "", "  ")
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

func (c *Config) redactedClone() Config {
	if c == nil {
		return Config{}
	}
	clone := *c
	if clone.DBURI != "" {
		clone.DBURI = redactedPlaceholder
	}
	if clone.S3.AccessKeyID != "" {
		clone.S3.AccessKeyID = redactedPlaceholder
	}
	if clone.S3.SecretAccessKey != "" {
		clone.S3.SecretAccessKey = redactedPlaceholder
	}
	if clone.GCS.CredentialsJSON != "" {
		clone.GCS.CredentialsJSON = redactedPlaceholder
	}
	if clone.Azure.SASToken != "" {
		clone.Azure.SASToken = redactedPlaceholder
	}
	if clone.Azure.ClientSecret != "" {
		clone.Azure.ClientSecret = redactedPlaceholder
	}
	return clone
}

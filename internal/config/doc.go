// Package config handles configuration loading for snowgate.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from SNOWGATE_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/snowgate/config.yaml
//  3. ~/.config/snowgate/config.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	servicenow:
//	  instance_url: "${SERVICENOW_INSTANCE_URL}"
//	  password: "${SERVICENOW_PASSWORD}"
//
// Syntax: ${VAR_NAME}
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	sessions:
//	  ttl: "24h"
//	servicenow:
//	  timeout: "30s"
//
// # Example
//
//	server:
//	  http_addr: "localhost:8080"
//
//	servicenow:
//	  instance_url: "https://example.service-now.com"
//	  username: "${SERVICENOW_USERNAME}"
//	  password: "${SERVICENOW_PASSWORD}"
//
//	auth:
//	  api_key: "${SNOWGATE_API_KEY}"
//	  require_auth_on_stream: false
//
//	sessions:
//	  max_entries: 1024
//	  ttl: "24h"
//
//	logging:
//	  level: "info"
//	  format: "text"
package config

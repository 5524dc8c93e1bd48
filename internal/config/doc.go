// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation.
// PREDICT_API_URL and PREDICT_API_TIMEOUT override api.base_url and api.timeout
// after the file is parsed.
package config

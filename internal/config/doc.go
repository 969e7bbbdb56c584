// Package config loads bookdata configuration from YAML.
//
// Values of the form ${VAR} are expanded from the environment after an
// optional .env file has been loaded. Load applies nothing; LoadWithDefaults
// fills optional fields; LoadAndValidate also checks the result.
package config

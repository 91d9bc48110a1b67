// Package config loads varsim-tools settings.
//
// Values are resolved from, in increasing precedence: the `default` struct
// tags, the YAML config file (~/.varsim-tools.yaml or --config), a .env file
// in the working directory, and VARSIM_* environment variables. Nested keys
// map to environment variables by replacing dots with underscores, so
// merge.compress is read from VARSIM_MERGE_COMPRESS.
package config

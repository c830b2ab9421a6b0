// Package config loads the exporter service configuration.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//  1. Environment variables (highest priority)
//  2. A YAML configuration file
//  3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern SPIRO_<SECTION>_<FIELD>:
//
//	SPIRO_SERVER_PORT=8080
//	SPIRO_LOGGING_LEVEL=debug
//	SPIRO_DATA_POPULATION_FILE=/srv/data/spirometry_anthropometric_clean.csv
//	SPIRO_EXPORT_BOM_PREFIX=true
//
// SPIRO_CONFIG names the YAML file explicitly; otherwise config.yaml and
// configs/config.yaml are tried.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Testing
//
// Default returns a valid configuration that needs no environment variables
// or files.
package config

// BSE Pipeline - Corporate Announcement Ingestion and Categorization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bse-pipeline

/*
Package config loads and validates the worker and supervisor
processes' configuration.

# Configuration Sources

Settings are layered in order of increasing priority:

 1. Struct defaults (defaultConfig)
 2. An optional YAML file (config.yaml, or the path named by CONFIG_PATH)
 3. Environment variables

# Usage

	cfg, err := config.Load()
	if err != nil {
	    log.Fatalf("load config: %v", err)
	}
	fmt.Println(cfg.Store.DSN, cfg.Upstream.URL)

See envKeyMap in koanf.go for the full list of recognized environment
variables and the config path they map onto.

# Validation

Load calls Config.Validate before returning: it requires a non-empty
store DSN and upstream URL, a positive fetch concurrency limit and
live-days window, a non-negative retry count, a positive insert batch
size, a dashboard dedup threshold and embedding-similarity
threshold both in (0, 1], and a recognized log level/format.
*/
package config

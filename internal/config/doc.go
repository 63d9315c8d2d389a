// Package config loads the kitchen client's TOML configuration.
//
// # Configuration Discovery
//
// Load follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/kitchen/config.toml
//  3. If the file doesn't exist, fall back to defaults
//  4. If the file exists but fields are missing or blank, use defaults
//
// # Fields
//
//	api_url                  = "http://127.0.0.1:8000/api/v1"
//	token_file               = "~/.config/kitchen/token"
//	data_dir                 = "~/.local/share/kitchen"   # kitchen.db, kitchen.log
//	log_level                = "info"
//	request_timeout_seconds  = 10
//	health_interval_seconds  = 15
//	refresh_interval_seconds = 60
//	max_attempts             = 10      # 0 retries forever
//	coalesce                 = true
//	metrics_addr             = ""      # e.g. "127.0.0.1:9464"; empty disables
//
// String values are trimmed and paths starting with ~ are expanded. Numeric
// values that are present must be positive (max_attempts may be zero);
// anything else is an error.
package config

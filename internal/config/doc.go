// Package config loads tern's configuration file.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/tern/config.toml (default)
//  3. If the config file doesn't exist, fall back to defaults
//  4. If the file exists but fields are missing/empty, use defaults
//
// Files ending in .yaml or .yml are parsed as YAML; anything else as TOML.
//
// # Default Values
//
//   - API endpoint: http://127.0.0.1:8080
//   - refresh_interval: 5s
//   - operation_poll_interval: 5s, operation_poll_attempts: 3
//   - page_size: 50, max_items: 200
//   - log_file: ~/.local/state/tern/tern.log, log_level: info
//
// # Environment
//
// TERN_API_URL and TERN_TOKEN override the file. When they are unset in the
// process environment, a .env file in the config directory is consulted.
// The .env file is read, never exported into the process environment.
//
// # TOML Format
//
//	api_url = "https://operate.example.com"
//	token = "..."
//	refresh_interval = "10s"
//	operation_poll_interval = "2s"
//	operation_poll_attempts = 5
//	page_size = 50
//	max_items = 200
//	log_file = "~/.local/state/tern/tern.log"
//	log_level = "debug"
//
// # Error Handling
//
// Load returns errors for unreadable files, malformed TOML or YAML, invalid
// durations and non-positive counts. A missing file is not an error.
package config

// Package config provides simple, local-first configuration management for typeahead.
//
// Configuration lives in the project's .typeahead/ directory by default, or in
// any file passed with --config. Files ending in .yaml or .yml are YAML, all
// others JSON.
//
// Configuration File Structure:
//
//	.typeahead/
//	├── config.json        # Main configuration (committed to git)
//	├── .gitignore         # Keeps logs out of git
//	└── typeahead.log      # TUI log output
//
// A config.json with the defaults:
//
//	{
//	  "endpoint": "http://localhost:23432/drug-predict/",
//	  "request_timeout": "0s",
//	  "quiet_period": "500ms",
//	  "result_cap": 10,
//	  "fields": [
//	    {"name": "section", "key": "drug_section", "label": "Section", "default": "IN01"},
//	    {"name": "text", "key": "drug_text", "label": "Drug", "required": true}
//	  ],
//	  "require": "all",
//	  "theme": "ember",
//	  "debug": false,
//	  "log_file": "typeahead.log",
//	  "server": {"addr": ":23432", "rate_per_second": 20, "burst": 10,
//	             "min_latency": "50ms", "max_latency": "400ms"}
//	}
//
// Environment Variable Support:
//
// The endpoint, log_file and server.addr values can reference environment
// variables using $VAR or ${VAR} syntax:
//
//	{
//	  "endpoint": "${PREDICT_URL}/drug-predict/"
//	}
//
// Example usage:
//
//	manager := config.NewManager("/path/to/project")
//	if err := manager.Load(); err != nil {
//		log.Fatal(err)
//	}
//
//	cfg := manager.Get()
//	fmt.Println("quiet period:", cfg.QuietPeriod)
//
//	// Update a setting
//	manager.Set("quiet_period", "300ms")
package config

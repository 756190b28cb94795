// Package config handles configuration loading for the widget runtime.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults. A widget can also be
// constructed without a file via Default.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	backend:
//	  origin: "${GITHAFORGE_BACKEND_ORIGIN}"
//
// Syntax: ${VAR_NAME}
//
// # Configuration Sections
//
// Widget surface:
//
//	widget:
//	  mode: "standalone"        # standalone, embedded, preview
//	  chatbot_id: "cb_123"
//	  title: "Support"
//	  subtitle: "We usually reply within minutes"
//	  greeting: "Hi! How can we help?"
//
// Backend binding:
//
//	backend:
//	  origin: "https://api.githaforge.com"
//	  runtime_origin: ""        # set only when embedded behind a tunnel/custom domain
//	  request_timeout: "30s"
//	  beacon_timeout: "5s"
//
// Session storage:
//
//	storage:
//	  path: "/var/lib/githaforge/widget.db"   # empty = in-memory
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Binding selection
//
// Exactly one transport binding is chosen at construction: the parameterized
// binding when backend.runtime_origin is set (embedded mode only), otherwise
// the default binding against backend.origin. Validation rejects a
// runtime_origin outside embedded mode.
package config

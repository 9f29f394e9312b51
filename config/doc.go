// Package config provides configuration loading and validation for itemgate.
//
// The package handles YAML configuration files, environment variables, and CLI flags
// with automatic merging and validation using go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right
//  3. Environment variables (ITEMGATE_ prefix, plus PORT and JWT_SECRET)
//  4. CLI flags
//
// # Usage
//
//	cfg, err := config.Load([]string{"config.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Store in context for subcommands
//	ctx = config.WithContext(ctx, cfg)
//
//	// Retrieve later
//	cfg, err = config.FromContext(ctx)
//
// # Environment Variables
//
// All config keys map to environment variables with ITEMGATE_ prefix:
//   - server.port → ITEMGATE_SERVER_PORT (or PORT)
//   - auth.secret → ITEMGATE_AUTH_SECRET (or JWT_SECRET)
//   - database.dsn → ITEMGATE_DATABASE_DSN
//   - storage.bucket → ITEMGATE_STORAGE_BUCKET
//
// # Signing Secret
//
// auth.secret has no default. Load accepts a config without it so that
// commands such as migrate can run; the server calls AuthConfig.Validate and
// refuses to start when it is missing.
package config

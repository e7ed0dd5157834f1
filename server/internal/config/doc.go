// Package config loads the server configuration from the `server:` section
// of config.yaml.
//
// Config fields:
//   - GRPCPort      port for the gRPC health service (default 50051)
//   - HTTPPort      port for the REST API and /metrics (default 9047)
//   - LogLevel      debug | info | warn | error
//   - Auth          API key and role/user header names for REST clients
//   - Catalog       badger directory, in-memory mode and value log GC interval
//   - Nodes         coordinator/executor targets and scrape settings
//   - Alerts        snapshot alert rules and webhook targets
//
// Load(path) applies defaults before unmarshalling, then validates.
// Watch(ctx, path, onChange) reloads the file on every write.
package config

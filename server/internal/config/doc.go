// Package config loads the netpulse configuration from config.yaml.
//
// Sections:
//   - simulation: tick_interval (2s), history_depth (20), nodes (five
//     regional names), seed (0 = random), autostart (true)
//   - server: http_port (8080), broadcast_interval (5s), ui_dir
//   - events: capacity (50), retention (30m)
//   - alerts: cooldown (15m), webhooks (type + url_env)
//   - log: level (info)
//
// Load(path) applies defaults before unmarshalling, then validates.
// Watch(ctx, path, fn) reloads the file on change; only log.level and
// alerts.* are applied at runtime.
package config

// Package alerts tracks the engine's ALARM events as firing alerts keyed by
// node and severity, resolves them when the node recovers, and delivers
// firing/resolved notifications to Teams, Slack, or generic HTTP webhooks.
package alerts

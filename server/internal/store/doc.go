// Package store keeps the dashboard's rolling event log. A Store is an engine
// subscriber holding the most recent events in a fixed-capacity window,
// with optional age-based eviction. Nothing is persisted.
package store

// Package health reduces a fleet snapshot to a single 0–100 score and a
// named state, for the REST API and the dashboard's summary tile.
package health

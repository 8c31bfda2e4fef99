// Package db defines the persistent cache backing the dashboard: aggregated
// participant snapshots, overlays, rewards and the other per-epoch records
// served by the API.
package db

import "github.com/gonka-ai/dashboard-backend/db/kv"

// NewDB initializes a new DB.
func NewDB(dirPath string) (Database, error) {
	return kv.NewKVStore(dirPath)
}

package db

import "github.com/gonka-ai/dashboard-backend/db/iface"

// ReadOnlyDatabase exposes the dashboard DB read only functions for all buckets.
type ReadOnlyDatabase = iface.ReadOnlyDatabase

// WriteAccessDatabase exposes the dashboard DB writing functions for all buckets.
type WriteAccessDatabase = iface.WriteAccessDatabase

// FullAccessDatabase exposes the dashboard DB write and read functions for all buckets.
type FullAccessDatabase = iface.FullAccessDatabase

// Database defines the necessary methods for the dashboard DB which may be implemented by any
// key-value or relational database in practice. This is the full database interface which should
// not be used often. Prefer a more restrictive interface in this package.
type Database = iface.Database

// Package iface defines the actual database interface used by the dashboard
// node, also containing useful, scoped interfaces such as a ReadOnlyDatabase.
package iface

import (
	"context"
	"io"

	"github.com/gonka-ai/dashboard-backend/types"
)

// ReadOnlyDatabase defines a struct which only has read access to database methods.
type ReadOnlyDatabase interface {
	// Participant snapshot related methods.
	SnapshotBatch(ctx context.Context, epochID, height uint64) (*types.SnapshotBatch, error)
	LatestSnapshotBatch(ctx context.Context, epochID uint64) (*types.SnapshotBatch, error)
	IsEpochFinished(ctx context.Context, epochID uint64) (bool, error)
	// Overlay related methods.
	JailStatuses(ctx context.Context, epochID uint64) ([]*types.JailStatus, error)
	NodeHealth(ctx context.Context) ([]*types.NodeHealth, error)
	// Reward related methods.
	Reward(ctx context.Context, epochID uint64, participantID string) (*types.Reward, error)
	RewardsForParticipant(ctx context.Context, participantID string, epochIDs []uint64) ([]*types.Reward, error)
	EpochTotalRewards(ctx context.Context, epochID uint64) (*types.EpochTotalRewards, error)
	// Participant detail related methods.
	WarmKeys(ctx context.Context, epochID uint64, participantID string) ([]*types.WarmKey, error)
	HardwareNodes(ctx context.Context, epochID uint64, participantID string) ([]*types.HardwareNode, error)
	ParticipantInferences(ctx context.Context, epochID uint64, participantID string) ([]*types.InferenceRecord, error)
	// Model related methods.
	ModelRows(ctx context.Context, epochID uint64) ([]*types.ModelRow, error)
	ModelsAPICache(ctx context.Context, epochID, height uint64) (*types.ModelsAPICache, error)
	// Timeline related methods.
	Timeline(ctx context.Context) (*types.TimelineSnapshot, error)
}

// WriteAccessDatabase defines a struct which only has write access to database methods.
type WriteAccessDatabase interface {
	// Participant snapshot related methods.
	SaveSnapshotBatch(ctx context.Context, batch *types.SnapshotBatch) error
	MarkEpochFinished(ctx context.Context, epochID, finishHeight uint64) error
	DeleteEpochStats(ctx context.Context, epochID uint64) error
	// Overlay related methods.
	SaveJailStatuses(ctx context.Context, statuses []*types.JailStatus) error
	SaveNodeHealth(ctx context.Context, statuses []*types.NodeHealth) error
	// Reward related methods.
	SaveRewards(ctx context.Context, rewards []*types.Reward) error
	SaveEpochTotalRewards(ctx context.Context, total *types.EpochTotalRewards) error
	DeleteEpochTotalRewards(ctx context.Context, epochID uint64) error
	// Participant detail related methods.
	SaveWarmKeys(ctx context.Context, epochID uint64, participantID string, keys []*types.WarmKey) error
	SaveHardwareNodes(ctx context.Context, epochID uint64, participantID string, nodes []*types.HardwareNode) error
	SaveParticipantInferences(ctx context.Context, epochID uint64, participantID string, inferences []*types.InferenceRecord) error
	// Model related methods.
	SaveModelRows(ctx context.Context, epochID uint64, rows []*types.ModelRow) error
	SaveModelsAPICache(ctx context.Context, cache *types.ModelsAPICache) error
	// Timeline related methods.
	SaveTimeline(ctx context.Context, snapshot *types.TimelineSnapshot) error
}

// FullAccessDatabase defines a struct with full read/write access to database methods.
type FullAccessDatabase interface {
	ReadOnlyDatabase
	WriteAccessDatabase
}

// Database represents a full access database with the proper DB helper functions.
type Database interface {
	io.Closer
	FullAccessDatabase
	DatabasePath() string
	ClearDB() error
}

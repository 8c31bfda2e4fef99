package chainclient

import (
	"context"
	"fmt"
)

// GetEpochPerformanceSummary fetches a participant's reward record for one
// epoch. A non-zero height pins the query to historical state.
func (c *Client) GetEpochPerformanceSummary(ctx context.Context, epochID uint64, participantID string, height uint64) (*PerformanceSummary, error) {
	var opts []ReqOption
	if height > 0 {
		opts = append(opts, WithHeightHeader(height))
	}
	env := &performanceSummaryEnvelope{}
	path := fmt.Sprintf("%s/epoch_performance_summary/%d/%s", inferencePath, epochID, participantID)
	if err := c.getJSON(ctx, path, env, opts...); err != nil {
		return nil, err
	}
	if env.EpochPerformanceSummary.RewardedCoins == "" {
		env.EpochPerformanceSummary.RewardedCoins = "0"
	}
	return &env.EpochPerformanceSummary, nil
}

// GetHardwareNodes fetches the MLNodes a participant has registered.
func (c *Client) GetHardwareNodes(ctx context.Context, participantID string) ([]HardwareNode, error) {
	env := &hardwareNodesEnvelope{}
	if err := c.getJSON(ctx, inferencePath+"/hardware_nodes/"+participantID, env); err != nil {
		return nil, err
	}
	return env.Nodes.HardwareNodes, nil
}

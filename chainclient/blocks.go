package chainclient

import (
	"context"
	"fmt"

	"github.com/gonka-ai/dashboard-backend/types"
)

const blocksPath = "/cosmos/base/tendermint/v1beta1/blocks"

// GetLatestBlock returns the height and header time of the chain head.
func (c *Client) GetLatestBlock(ctx context.Context) (*types.BlockInfo, error) {
	env := &blockEnvelope{}
	if err := c.getJSON(ctx, blocksPath+"/latest", env); err != nil {
		return nil, err
	}
	return &types.BlockInfo{Height: uint64(env.Block.Header.Height), Timestamp: env.Block.Header.Time}, nil
}

// GetLatestHeight returns the height of the chain head.
func (c *Client) GetLatestHeight(ctx context.Context) (uint64, error) {
	block, err := c.GetLatestBlock(ctx)
	if err != nil {
		return 0, err
	}
	return block.Height, nil
}

// GetBlock returns the height and header time of the block at the given
// height.
func (c *Client) GetBlock(ctx context.Context, height uint64) (*types.BlockInfo, error) {
	env := &blockEnvelope{}
	if err := c.getJSON(ctx, fmt.Sprintf("%s/%d", blocksPath, height), env); err != nil {
		return nil, err
	}
	return &types.BlockInfo{Height: uint64(env.Block.Header.Height), Timestamp: env.Block.Header.Time}, nil
}

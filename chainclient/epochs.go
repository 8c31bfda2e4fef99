package chainclient

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

const inferencePath = "/gonka/inference/v1"

// GetLatestEpoch fetches the index and stage heights of the most recently
// started epoch.
func (c *Client) GetLatestEpoch(ctx context.Context) (*LatestEpochInfo, error) {
	info := &LatestEpochInfo{}
	if err := c.getJSON(ctx, inferencePath+"/latest_epoch", info); err != nil {
		return nil, err
	}
	return info, nil
}

// GetCurrentEpochGroup fetches the active participant set of the epoch in
// progress.
func (c *Client) GetCurrentEpochGroup(ctx context.Context) (*EpochGroup, error) {
	env := &epochGroupEnvelope{}
	if err := c.getJSON(ctx, inferencePath+"/epochs/current_epoch_group", env); err != nil {
		return nil, err
	}
	return &env.ActiveParticipants, nil
}

// GetEpochGroup fetches the participant set of a specific epoch.
func (c *Client) GetEpochGroup(ctx context.Context, epochID uint64) (*EpochGroup, error) {
	env := &epochGroupEnvelope{}
	path := fmt.Sprintf("%s/epochs/%d/epoch_group", inferencePath, epochID)
	if err := c.getJSON(ctx, path, env); err != nil {
		return nil, err
	}
	return &env.ActiveParticipants, nil
}

// GetParticipants fetches the chain's full participant registry as of the
// given height, in one page. A zero height reads the latest state.
func (c *Client) GetParticipants(ctx context.Context, height uint64) ([]Participant, error) {
	v := url.Values{}
	v.Set("pagination.limit", "10000")
	var opts []ReqOption
	if height > 0 {
		opts = append(opts, WithHeightHeader(height))
	}
	env := &participantsEnvelope{}
	if err := c.getJSON(ctx, inferencePath+"/participants?"+v.Encode(), env, opts...); err != nil {
		return nil, err
	}
	return env.Participant, nil
}

// DiscoverURLs returns the inference URLs advertised by current epoch
// members that are not already part of the rotation set.
func (c *Client) DiscoverURLs(ctx context.Context) ([]string, error) {
	group, err := c.GetCurrentEpochGroup(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool)
	for _, u := range c.BaseURLs() {
		known[strings.TrimRight(u, "/")] = true
	}
	discovered := make([]string, 0)
	for _, m := range group.Participants {
		u := strings.TrimRight(m.InferenceURL, "/")
		if u == "" || known[u] {
			continue
		}
		known[u] = true
		discovered = append(discovered, u)
	}
	log.WithField("count", len(discovered)).Info("Discovered additional upstream URLs")
	return discovered, nil
}

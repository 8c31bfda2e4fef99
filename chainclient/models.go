package chainclient

import "context"

// GetModels fetches all governance-registered model definitions along with
// the raw response body, which the aggregation layer caches verbatim.
func (c *Client) GetModels(ctx context.Context) ([]Model, []byte, error) {
	b, err := c.get(ctx, inferencePath+"/models")
	if err != nil {
		return nil, nil, err
	}
	env := &modelsEnvelope{}
	if err := unmarshalBody(b, env, "models"); err != nil {
		return nil, nil, err
	}
	return env.Model, b, nil
}

// GetModelsStats fetches per-model inference traffic totals along with the
// raw response body.
func (c *Client) GetModelsStats(ctx context.Context) ([]ModelUsageStats, []byte, error) {
	b, err := c.get(ctx, inferencePath+"/models_stats")
	if err != nil {
		return nil, nil, err
	}
	env := &modelsStatsEnvelope{}
	if err := unmarshalBody(b, env, "models_stats"); err != nil {
		return nil, nil, err
	}
	return env.StatsModels, b, nil
}

// ParseModels decodes a raw /models response body, as previously returned by
// GetModels. Used to revive cached payloads.
func ParseModels(b []byte) ([]Model, error) {
	env := &modelsEnvelope{}
	if err := unmarshalBody(b, env, "models"); err != nil {
		return nil, err
	}
	return env.Model, nil
}

// ParseModelsStats decodes a raw /models_stats response body, as previously
// returned by GetModelsStats.
func ParseModelsStats(b []byte) ([]ModelUsageStats, error) {
	env := &modelsStatsEnvelope{}
	if err := unmarshalBody(b, env, "models_stats"); err != nil {
		return nil, err
	}
	return env.StatsModels, nil
}

// GetRestrictionEndBlock fetches the height at which transfer restrictions
// lift.
func (c *Client) GetRestrictionEndBlock(ctx context.Context) (int64, error) {
	env := &restrictionsEnvelope{}
	if err := c.getJSON(ctx, inferencePath+"/restrictions_params", env); err != nil {
		return 0, err
	}
	return int64(env.Params.RestrictionEndBlock), nil
}

package chainclient

import (
	"context"
	"net/url"
)

// GetAllValidators pages through the staking module's validator set. A
// non-zero height pins every page to the same historical state via the
// block height header.
func (c *Client) GetAllValidators(ctx context.Context, height uint64) ([]Validator, error) {
	var opts []ReqOption
	if height > 0 {
		opts = append(opts, WithHeightHeader(height))
	}
	var validators []Validator
	nextKey := ""
	for {
		v := url.Values{}
		v.Set("pagination.limit", "500")
		if nextKey != "" {
			v.Set("pagination.key", nextKey)
		}
		env := &validatorsEnvelope{}
		if err := c.getJSON(ctx, "/cosmos/staking/v1beta1/validators?"+v.Encode(), env, opts...); err != nil {
			return nil, err
		}
		validators = append(validators, env.Validators...)
		nextKey = env.Pagination.NextKey
		if nextKey == "" {
			break
		}
	}
	log.WithField("count", len(validators)).Debug("Fetched validator set")
	return validators, nil
}

// GetSigningInfo looks up the slashing record for a consensus address.
// Lookups that fail for any reason report nil rather than an error, since
// signing info is a best-effort enrichment.
func (c *Client) GetSigningInfo(ctx context.Context, valconsAddr string, height uint64) *SigningInfo {
	var opts []ReqOption
	if height > 0 {
		opts = append(opts, WithHeightHeader(height))
	}
	env := &signingInfoEnvelope{}
	if err := c.getJSON(ctx, "/cosmos/slashing/v1beta1/signing_infos/"+valconsAddr, env, opts...); err != nil {
		log.WithError(err).WithField("valcons", valconsAddr).Warn("Could not fetch signing info")
		return nil
	}
	return env.ValSigningInfo
}

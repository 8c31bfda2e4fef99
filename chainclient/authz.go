package chainclient

import (
	"context"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

const grantsPageLimit = 100

// requiredPermissions is the full message set a participant delegates to an
// auxiliary key. A grantee counts as a warm key only when grants for every
// one of these are present.
var requiredPermissions = []string{
	"MsgStartInference",
	"MsgFinishInference",
	"MsgClaimRewards",
	"MsgValidation",
	"MsgSubmitPocBatch",
	"MsgSubmitPocValidation",
	"MsgSubmitSeed",
	"MsgBridgeExchange",
	"MsgSubmitTrainingKvRecord",
	"MsgJoinTraining",
	"MsgJoinTrainingStatus",
	"MsgTrainingHeartbeat",
	"MsgSetBarrier",
	"MsgClaimTrainingTaskForAssignment",
	"MsgAssignTrainingTask",
	"MsgSubmitNewUnfundedParticipant",
	"MsgSubmitHardwareDiff",
	"MsgInvalidateInference",
	"MsgRevalidateInference",
	"MsgSubmitDealerPart",
	"MsgSubmitVerificationVector",
	"MsgRequestThresholdSignature",
	"MsgSubmitPartialSignature",
	"MsgSubmitGroupKeyValidationSignature",
}

type granteeGrants struct {
	perms      map[string]bool
	expiration string
}

// GetWarmKeys fetches all authz grants issued by the granter and reduces
// them to the grantees holding the full permission set, newest grant first.
// Paging stops at the first failed page; an error is returned only when
// nothing could be fetched at all.
func (c *Client) GetWarmKeys(ctx context.Context, granter string) ([]WarmKeyGrant, error) {
	var grants []Grant
	offset := 0
	for {
		v := url.Values{}
		v.Set("pagination.limit", strconv.Itoa(grantsPageLimit))
		v.Set("pagination.offset", strconv.Itoa(offset))
		env := &grantsEnvelope{}
		err := c.getJSON(ctx, "/cosmos/authz/v1beta1/grants/granter/"+granter+"?"+v.Encode(), env)
		if err != nil {
			if offset == 0 {
				return nil, err
			}
			log.WithError(err).WithFields(logrus.Fields{
				"granter": granter,
				"offset":  offset,
			}).Warn("Could not page authz grants, using partial results")
			break
		}
		if len(env.Grants) == 0 {
			break
		}
		grants = append(grants, env.Grants...)
		if len(env.Grants) < grantsPageLimit {
			break
		}
		offset += grantsPageLimit
	}

	byGrantee := make(map[string]*granteeGrants)
	order := make([]string, 0)
	for _, grant := range grants {
		if grant.Grantee == "" {
			continue
		}
		state, ok := byGrantee[grant.Grantee]
		if !ok {
			state = &granteeGrants{perms: make(map[string]bool), expiration: grant.Expiration}
			byGrantee[grant.Grantee] = state
			order = append(order, grant.Grantee)
		}
		for _, perm := range requiredPermissions {
			if strings.Contains(grant.Authorization.Msg, perm) {
				state.perms[perm] = true
			}
		}
	}

	warmKeys := make([]WarmKeyGrant, 0)
	for _, grantee := range order {
		state := byGrantee[grantee]
		if len(state.perms) >= len(requiredPermissions) {
			warmKeys = append(warmKeys, WarmKeyGrant{GranteeAddress: grantee, GrantedAt: state.expiration})
		}
	}
	sort.SliceStable(warmKeys, func(i, j int) bool {
		return warmKeys[i].GrantedAt > warmKeys[j].GrantedAt
	})
	log.WithFields(logrus.Fields{"granter": granter, "count": len(warmKeys)}).Debug("Resolved warm keys")
	return warmKeys, nil
}

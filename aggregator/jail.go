package aggregator

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/gonka-ai/dashboard-backend/chainclient"
	"github.com/gonka-ai/dashboard-backend/types"
)

// RefreshJailStatuses runs the jail sweep for the epoch in progress at the
// live height. It is the scheduler's per-tick entry point.
func (s *Service) RefreshJailStatuses(ctx context.Context) error {
	timer := prometheus.NewTimer(refreshDuration.WithLabelValues("jail"))
	defer timer.ObserveDuration()

	group, err := s.client.GetCurrentEpochGroup(ctx)
	if err != nil {
		return err
	}
	height, err := s.client.GetLatestHeight(ctx)
	if err != nil {
		return err
	}
	s.cacheJailStatuses(ctx, uint64(group.EpochGroupID), height, group.Participants)
	return nil
}

// cacheJailStatuses joins the epoch members with the staking validator set
// pinned at height and persists one overlay row per joinable member. The
// sweep never fails the caller: responses degrade to missing overlays
// instead.
func (s *Service) cacheJailStatuses(ctx context.Context, epochID uint64, height uint64, members []chainclient.EpochMember) {
	validators, err := s.client.GetAllValidators(ctx, height)
	if err != nil {
		log.WithError(err).Error("Could not refresh jail statuses")
		return
	}

	validatorByOperator := make(map[string]*chainclient.Validator)
	for i := range validators {
		v := &validators[i]
		if v.OperatorAddress == "" || !hasPositiveTokens(v.Tokens) {
			continue
		}
		validatorByOperator[v.OperatorAddress] = v
	}

	now := time.Now().UTC()
	rows := make([]*types.JailStatus, 0, len(members))
	for i := range members {
		m := &members[i]
		valoper := chainclient.ConvertBech32Address(m.Index, chainclient.ValoperHRP)
		if valoper == "" {
			continue
		}
		validator := validatorByOperator[valoper]
		if validator == nil {
			continue
		}

		consensusPub := validator.ConsensusPubkey.Base64Key()
		var mismatch *bool
		if consensusPub != "" && m.ValidatorKey != "" {
			mismatch = boolPtr(consensusPub != m.ValidatorKey)
		}

		var valcons string
		if consensusPub != "" {
			if valcons, err = chainclient.PubkeyToValcons(consensusPub); err != nil {
				log.WithError(err).WithField("participant", m.Index).Warn("Could not derive consensus address")
				valcons = ""
			}
		}

		var jailedUntil string
		readyToUnjail := false
		if validator.Jailed && valcons != "" {
			if info := s.client.GetSigningInfo(ctx, valcons, height); info != nil {
				// The zero jailed_until still carries the unix epoch date;
				// it means "never jailed by slashing", not a real deadline.
				if info.JailedUntil != "" && !strings.Contains(info.JailedUntil, "1970-01-01") {
					jailedUntil = info.JailedUntil
					if until, perr := time.Parse(time.RFC3339Nano, info.JailedUntil); perr == nil {
						readyToUnjail = now.After(until)
					}
				}
			}
		}

		moniker := strings.TrimSpace(validator.Description.Moniker)
		if strings.HasPrefix(moniker, "gonkavaloper") {
			// Upstream defaults the moniker to the operator address.
			moniker = ""
		}
		identity := strings.TrimSpace(validator.Description.Identity)
		website := strings.TrimSpace(validator.Description.Website)

		var keybaseUsername, keybasePictureURL string
		if identity != "" {
			keybaseUsername, keybasePictureURL = s.client.GetKeybaseProfile(ctx, identity)
		}

		rows = append(rows, &types.JailStatus{
			EpochID:               epochID,
			ParticipantIndex:      m.Index,
			IsJailed:              validator.Jailed,
			JailedUntil:           jailedUntil,
			ReadyToUnjail:         readyToUnjail,
			ValconsAddress:        valcons,
			Moniker:               moniker,
			Identity:              identity,
			KeybaseUsername:       keybaseUsername,
			KeybasePictureURL:     keybasePictureURL,
			Website:               website,
			ValidatorConsensusKey: consensusPub,
			ConsensusKeyMismatch:  mismatch,
			UpdatedAt:             now,
		})
	}

	if err := s.db.SaveJailStatuses(ctx, rows); err != nil {
		log.WithError(err).Error("Could not refresh jail statuses")
		return
	}
	log.WithFields(logrus.Fields{"epoch": epochID, "count": len(rows)}).Info("Cached jail statuses")
}

// hasPositiveTokens reports whether a validator's staked token string is a
// positive amount. Amounts are decimal strings that can exceed 64 bits.
func hasPositiveTokens(tokens string) bool {
	if tokens == "" {
		return false
	}
	v, ok := new(big.Int).SetString(tokens, 10)
	return ok && v.Sign() > 0
}

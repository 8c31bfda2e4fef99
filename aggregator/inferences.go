package aggregator

import (
	"context"

	"go.opencensus.io/trace"

	"github.com/gonka-ai/dashboard-backend/types"
)

// ParticipantInferences serves a participant's cached inference rows for an
// epoch, grouped by terminal status. The read is cache-only: nothing is
// fetched upstream, and a participant that was never polled serves empty
// groups.
func (s *Service) ParticipantInferences(ctx context.Context, epochID uint64, participantID string) (*ParticipantInferencesResponse, error) {
	ctx, span := trace.StartSpan(ctx, "aggregator.ParticipantInferences")
	defer span.End()

	records, err := s.db.ParticipantInferences(ctx, epochID, participantID)
	if err != nil {
		return nil, err
	}

	resp := &ParticipantInferencesResponse{
		EpochID:       epochID,
		ParticipantID: participantID,
		Successful:    []InferenceDetail{},
		Expired:       []InferenceDetail{},
		Invalidated:   []InferenceDetail{},
	}
	for _, rec := range records {
		detail := inferenceDetail(rec)
		switch rec.Status {
		case "FINISHED", "VALIDATED":
			resp.Successful = append(resp.Successful, detail)
		case "EXPIRED":
			resp.Expired = append(resp.Expired, detail)
		case "INVALIDATED":
			resp.Invalidated = append(resp.Invalidated, detail)
		}
	}
	return resp, nil
}

func inferenceDetail(rec *types.InferenceRecord) InferenceDetail {
	validatedBy := rec.ValidatedBy
	if validatedBy == nil {
		validatedBy = []string{}
	}
	return InferenceDetail{
		InferenceID:          rec.InferenceID,
		Status:               rec.Status,
		StartBlockHeight:     rec.StartBlockHeight,
		StartBlockTimestamp:  rec.StartBlockTimestamp,
		ValidatedBy:          validatedBy,
		PromptHash:           optString(rec.PromptHash),
		ResponseHash:         optString(rec.ResponseHash),
		PromptPayload:        optString(rec.PromptPayload),
		ResponsePayload:      optString(rec.ResponsePayload),
		PromptTokenCount:     optString(rec.PromptTokenCount),
		CompletionTokenCount: optString(rec.CompletionTokenCount),
		Model:                optString(rec.Model),
	}
}

package gateway

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/gonka-ai/dashboard-backend/aggregator"
	"github.com/gonka-ai/dashboard-backend/chainclient"
	"github.com/gonka-ai/dashboard-backend/network/httputil"
	"github.com/gonka-ai/dashboard-backend/runtime/version"
)

func (s *Service) helloHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJson(w, map[string]string{"message": "hello"})
}

func (s *Service) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJson(w, map[string]string{"version": version.GetVersion()})
}

func (s *Service) currentStatsHandler(w http.ResponseWriter, r *http.Request) {
	reload := false
	if raw := r.URL.Query().Get("reload"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			httputil.HandleError(w, "Invalid reload flag", http.StatusBadRequest)
			return
		}
		reload = parsed
	}
	resp, err := s.cfg.Aggregator.CurrentEpochStats(r.Context(), reload)
	if err != nil {
		writeServiceError(w, err, "Failed to fetch current epoch stats")
		return
	}
	httputil.WriteJson(w, resp)
}

func (s *Service) historicalStatsHandler(w http.ResponseWriter, r *http.Request) {
	epochID, ok := epochPathParam(w, r)
	if !ok {
		return
	}
	height, ok := heightParam(w, r)
	if !ok {
		return
	}
	resp, err := s.cfg.Aggregator.HistoricalEpochStats(r.Context(), epochID, height, false)
	if err != nil {
		writeServiceError(w, err, fmt.Sprintf("Failed to fetch epoch %d stats", epochID))
		return
	}
	httputil.WriteJson(w, resp)
}

func (s *Service) participantDetailsHandler(w http.ResponseWriter, r *http.Request) {
	participantID := mux.Vars(r)["participant_id"]
	epochID, ok := epochQueryParam(w, r)
	if !ok {
		return
	}
	height, ok := heightParam(w, r)
	if !ok {
		return
	}
	details, err := s.cfg.Aggregator.ParticipantDetails(r.Context(), participantID, epochID, height)
	if err != nil {
		writeServiceError(w, err, "Failed to fetch participant details")
		return
	}
	if details == nil {
		httputil.HandleError(w, fmt.Sprintf("Participant %s not found in epoch %d", participantID, epochID), http.StatusNotFound)
		return
	}
	httputil.WriteJson(w, details)
}

func (s *Service) participantInferencesHandler(w http.ResponseWriter, r *http.Request) {
	participantID := mux.Vars(r)["participant_id"]
	epochID, ok := epochQueryParam(w, r)
	if !ok {
		return
	}
	resp, err := s.cfg.Aggregator.ParticipantInferences(r.Context(), epochID, participantID)
	if err != nil {
		writeServiceError(w, err, "Failed to fetch participant inferences")
		return
	}
	httputil.WriteJson(w, resp)
}

func (s *Service) timelineHandler(w http.ResponseWriter, r *http.Request) {
	resp, err := s.cfg.Aggregator.Timeline(r.Context())
	if err != nil {
		writeServiceError(w, err, "Failed to fetch timeline")
		return
	}
	httputil.WriteJson(w, resp)
}

func (s *Service) currentModelsHandler(w http.ResponseWriter, r *http.Request) {
	resp, err := s.cfg.Aggregator.CurrentModels(r.Context())
	if err != nil {
		writeServiceError(w, err, "Failed to fetch current models")
		return
	}
	httputil.WriteJson(w, resp)
}

func (s *Service) historicalModelsHandler(w http.ResponseWriter, r *http.Request) {
	epochID, ok := epochPathParam(w, r)
	if !ok {
		return
	}
	height, ok := heightParam(w, r)
	if !ok {
		return
	}
	resp, err := s.cfg.Aggregator.HistoricalModels(r.Context(), epochID, height)
	if err != nil {
		writeServiceError(w, err, fmt.Sprintf("Failed to fetch models for epoch %d", epochID))
		return
	}
	httputil.WriteJson(w, resp)
}

// epochPathParam parses the epoch id path variable; ids below 1 are
// rejected.
func epochPathParam(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	return parseEpochID(w, mux.Vars(r)["epoch_id"])
}

// epochQueryParam parses the required epoch_id query parameter.
func epochQueryParam(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	return parseEpochID(w, r.URL.Query().Get("epoch_id"))
}

func parseEpochID(w http.ResponseWriter, raw string) (uint64, bool) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id < 1 {
		httputil.HandleError(w, "Invalid epoch ID", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// heightParam parses the optional height query parameter; absent means the
// canonical height for the epoch.
func heightParam(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	raw := r.URL.Query().Get("height")
	if raw == "" {
		return 0, true
	}
	h, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || h < 1 {
		httputil.HandleError(w, "Invalid height", http.StatusBadRequest)
		return 0, false
	}
	return h, true
}

// writeServiceError maps aggregation errors onto HTTP statuses: requests
// before an epoch's start are the client's fault, an unreachable upstream
// with no cache is a 503, anything else is a 500.
func writeServiceError(w http.ResponseWriter, err error, msg string) {
	var invalidHeight *aggregator.InvalidHeightError
	switch {
	case errors.As(err, &invalidHeight):
		httputil.HandleError(w, invalidHeight.Error(), http.StatusBadRequest)
	case errors.Is(err, chainclient.ErrUpstreamUnavailable):
		httputil.HandleError(w, fmt.Sprintf("%s: %v", msg, err), http.StatusServiceUnavailable)
	default:
		httputil.HandleError(w, fmt.Sprintf("%s: %v", msg, err), http.StatusInternalServerError)
	}
}

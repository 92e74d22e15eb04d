package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gapilongo/OPiN/aggregate"
	"github.com/gapilongo/OPiN/errors"
	"github.com/gapilongo/OPiN/types"
)

// pointRequest is the ingestion payload for one data point.
type pointRequest struct {
	Category     types.Category   `json:"category"`
	Value        types.Value      `json:"value"`
	Timestamp    *time.Time       `json:"timestamp,omitempty"`
	PrivacyLevel types.PrivacyLevel `json:"privacy_level,omitempty"`
	Location     *types.Location  `json:"location,omitempty"`
	Source       types.DataSource `json:"source,omitempty"`
	Metadata     map[string]any   `json:"metadata,omitempty"`
}

func (r *pointRequest) toPoint() (*types.DataPoint, error) {
	if !r.Category.Valid() {
		return nil, errors.WrapInvalid(errors.ErrUnknownCategory,
			"gateway", "toPoint", "category "+string(r.Category))
	}

	ts := time.Now().UTC()
	if r.Timestamp != nil {
		ts = r.Timestamp.UTC()
	}

	point := types.NewDataPoint(r.Category, r.Value, ts)
	if r.PrivacyLevel != "" {
		if !r.PrivacyLevel.Valid() {
			return nil, errors.WrapInvalid(errors.ErrInvalidData,
				"gateway", "toPoint", "privacy level "+string(r.PrivacyLevel))
		}
		point.PrivacyLevel = r.PrivacyLevel
	}
	point.Location = r.Location
	point.Source = r.Source
	point.Metadata = r.Metadata
	return point, nil
}

func (s *Server) handleCreatePoint(w http.ResponseWriter, r *http.Request) {
	var req pointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	point, err := req.toPoint()
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.pipeline.ProcessPoint(r.Context(), point); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, point)
}

type batchRequest struct {
	Points []pointRequest `json:"points"`
}

type batchResponse struct {
	ID                 uuid.UUID                `json:"id"`
	VerificationStatus types.VerificationStatus `json:"verification_status"`
	Points             []*types.DataPoint       `json:"points"`
}

func (s *Server) handleCreateBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Points) == 0 {
		s.writeError(w, http.StatusUnprocessableEntity, "batch must contain at least one point")
		return
	}

	points := make([]*types.DataPoint, len(req.Points))
	for i := range req.Points {
		point, err := req.Points[i].toPoint()
		if err != nil {
			s.writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		points[i] = point
	}

	batch := types.NewDataBatch(points)
	if err := s.pipeline.ProcessBatch(r.Context(), batch); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, batchResponse{
		ID:                 batch.ID,
		VerificationStatus: batch.VerificationStatus,
		Points:             batch.Points,
	})
}

type queryRequest struct {
	types.DataQuery
	Aggregation string `json:"aggregation,omitempty"`
}

type queryResponse struct {
	Points      []*types.DataPoint `json:"points"`
	Count       int                `json:"count"`
	Aggregation map[string]float64 `json:"aggregation,omitempty"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	points, err := s.store.QueryPoints(r.Context(), &req.DataQuery)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	resp := queryResponse{Points: points, Count: len(points)}
	if req.Aggregation != "" {
		result, err := aggregate.Aggregate(points, aggregate.Kind(req.Aggregation))
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		resp.Aggregation = result
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAnalyticsOverview(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	points, err := s.store.QueryPoints(r.Context(), &types.DataQuery{
		StartTime: now.Add(-7 * 24 * time.Hour),
		EndTime:   now,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, aggregate.BuildOverview(points, now))
}

type subscriptionRequest struct {
	UserID         uuid.UUID      `json:"user_id"`
	Category       types.Category `json:"category"`
	Filters        map[string]any `json:"filters,omitempty"`
	WebhookURL     string         `json:"webhook_url,omitempty"`
	Email          string         `json:"email,omitempty"`
	BroadcastTopic string         `json:"broadcast_topic,omitempty"`
}

func (s *Server) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !req.Category.Valid() {
		s.writeError(w, http.StatusUnprocessableEntity, "unknown category "+string(req.Category))
		return
	}

	sub := types.NewSubscription(req.UserID, req.Category)
	sub.Filters = req.Filters
	sub.WebhookURL = req.WebhookURL
	sub.Email = req.Email
	sub.BroadcastTopic = req.BroadcastTopic

	if err := s.store.CreateSubscription(r.Context(), sub); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.provider.Invalidate()
	s.writeJSON(w, http.StatusCreated, sub)
}

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.provider.Active(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if subs == nil {
		subs = []*types.Subscription{}
	}
	s.writeJSON(w, http.StatusOK, subs)
}

func (s *Server) handleDeactivateSubscription(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid subscription id")
		return
	}

	subs, err := s.store.GetActiveSubscriptions(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	for _, sub := range subs {
		if sub.ID == id {
			sub.Active = false
			if err := s.store.UpdateSubscription(r.Context(), sub); err != nil {
				s.writeDomainError(w, err)
				return
			}
			s.provider.Invalidate()
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	s.writeError(w, http.StatusNotFound, "subscription not found")
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := s.monitor.Aggregate("opin")
	code := http.StatusOK
	if status.IsUnhealthy() {
		code = http.StatusServiceUnavailable
	}
	s.writeJSON(w, code, map[string]any{
		"status":     status.Status,
		"message":    status.Message,
		"components": s.monitor.GetAll(),
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, errorResponse{Error: msg})
}

// writeDomainError maps error classes onto status codes: invalid input is
// the caller's fault, transient failures are retryable, everything else is a
// server error.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.IsInvalid(err):
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.IsTransient(err):
		w.Header().Set("Retry-After", "30")
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Error("request failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

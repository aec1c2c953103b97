package server

import (
	"net/http"
	"time"

	"github.com/jrsteele09/dietitian-server/entitlements"
	"github.com/jrsteele09/dietitian-server/organizations"
)

type featuresResponse struct {
	Plan         organizations.Plan   `json:"plan"`
	Status       organizations.Status `json:"status"`
	Features     []string             `json:"features"`
	TrialEndsAt  *time.Time           `json:"trialEndsAt,omitempty"`
	TrialExpired bool                 `json:"trialExpired"`
}

func (s *Server) OrganizationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		org, err := s.svc.Organizations.GetByID(r.Context(), r.PathValue(organizationParam))
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondData(w, http.StatusOK, org)
	}
}

// OrganizationUsageHandler reports every usage counter against its plan limit.
func (s *Server) OrganizationUsageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		organizationID := r.PathValue(organizationParam)
		usage := make(map[organizations.Resource]entitlements.UsageStatus, len(organizations.Resources))
		for _, resource := range organizations.Resources {
			status, err := s.svc.Entitlements.CheckUsageLimit(r.Context(), organizationID, resource)
			if err != nil {
				respondError(w, r, err)
				return
			}
			usage[resource] = status
		}
		respondData(w, http.StatusOK, usage)
	}
}

func (s *Server) OrganizationFeaturesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		organizationID := r.PathValue(organizationParam)
		org, err := s.svc.Organizations.GetByID(r.Context(), organizationID)
		if err != nil {
			respondError(w, r, err)
			return
		}
		expired, err := s.svc.Entitlements.IsTrialExpired(r.Context(), organizationID)
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondData(w, http.StatusOK, featuresResponse{
			Plan:         org.Plan,
			Status:       org.Status,
			Features:     entitlements.Features(org.Plan),
			TrialEndsAt:  org.TrialEndsAt,
			TrialExpired: expired,
		})
	}
}

// RecordAIQueryHandler counts one AI diet plan query against the organization's
// monthly quota.
func (s *Server) RecordAIQueryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		organizationID := r.PathValue(organizationParam)
		err := s.svc.Entitlements.CheckAndIncrementUsage(r.Context(), organizationID, organizations.ResourceAIQueries, 1)
		if err != nil {
			respondError(w, r, err)
			return
		}
		status, err := s.svc.Entitlements.CheckUsageLimit(r.Context(), organizationID, organizations.ResourceAIQueries)
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondData(w, http.StatusCreated, status)
	}
}

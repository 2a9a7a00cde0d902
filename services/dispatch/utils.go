package dispatch

import (
	"strings"

	"mastermatch/models"
)

func containsFold(list []string, value string) bool {
	for _, v := range list {
		if strings.EqualFold(v, value) {
			return true
		}
	}
	return false
}

// validateRequest rejects malformed requests before any collaborator
// is contacted.
func validateRequest(req models.ServiceRequest) error {
	if req.RequestID == "" {
		return NewInvalidRequestError("request id is required")
	}
	if req.ServiceType == "" {
		return NewInvalidRequestError("service type is required")
	}
	if len(req.Location.Coordinates) != 2 {
		return NewInvalidRequestError("location must carry [longitude, latitude] coordinates")
	}
	lng, lat := req.Location.Coordinates[0], req.Location.Coordinates[1]
	if lng < -180 || lng > 180 || lat < -90 || lat > 90 {
		return NewInvalidRequestError("location coordinates out of range")
	}
	if req.Urgency != "" && req.Urgency != models.UrgencyNormal && req.Urgency != models.UrgencyHigh {
		return NewInvalidRequestError("unknown urgency class " + req.Urgency)
	}
	return nil
}

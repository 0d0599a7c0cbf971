// Package authz decides whether an actor may perform a dispatch action.
// Decisions are keyed by (action, relationship) pairs so the rules can be
// tested without any HTTP plumbing.
package authz

import (
	"ambudispatch/internal/apperr"
	"ambudispatch/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Action string
type Relationship string

const (
	ActionCreateEmergency       Action = "emergency.create"
	ActionAssignEmergency       Action = "emergency.assign"
	ActionMarkEnRoute           Action = "emergency.mark_en_route"
	ActionMarkArrivedAtPatient  Action = "emergency.mark_arrived_at_patient"
	ActionMarkTransporting      Action = "emergency.mark_transporting"
	ActionMarkArrivedAtHospital Action = "emergency.mark_arrived_at_hospital"
	ActionCompleteEmergency     Action = "emergency.complete"
	ActionCancelEmergency       Action = "emergency.cancel"
	ActionAddFeedback           Action = "emergency.add_feedback"

	RelationAdmin          Relationship = "admin"
	RelationHospitalAdmin  Relationship = "hospital_admin"
	RelationAssignedDriver Relationship = "assigned_driver"
	RelationPatient        Relationship = "patient"
	RelationRequester      Relationship = "requester"
)

// capabilities is the full (action, relationship) table. An actor may
// perform an action when any of its relationships appears here.
var capabilities = map[Action][]Relationship{
	ActionCreateEmergency:       {RelationAdmin, RelationPatient, RelationRequester},
	ActionAssignEmergency:       {RelationAdmin, RelationHospitalAdmin},
	ActionMarkEnRoute:           {RelationAdmin, RelationAssignedDriver},
	ActionMarkArrivedAtPatient:  {RelationAdmin, RelationAssignedDriver},
	ActionMarkTransporting:      {RelationAdmin, RelationAssignedDriver},
	ActionMarkArrivedAtHospital: {RelationAdmin, RelationAssignedDriver},
	ActionCompleteEmergency:     {RelationAdmin, RelationAssignedDriver},
	ActionCancelEmergency:       {RelationAdmin, RelationPatient, RelationRequester},
	ActionAddFeedback:           {RelationPatient, RelationRequester},
}

// ActionForTransition maps a target emergency status to its action.
func ActionForTransition(next models.EmergencyStatus) (Action, bool) {
	switch next {
	case models.EmergencyStatusAssigned:
		return ActionAssignEmergency, true
	case models.EmergencyStatusEnRoute:
		return ActionMarkEnRoute, true
	case models.EmergencyStatusArrivedAtPatient:
		return ActionMarkArrivedAtPatient, true
	case models.EmergencyStatusTransporting:
		return ActionMarkTransporting, true
	case models.EmergencyStatusArrivedAtHospital:
		return ActionMarkArrivedAtHospital, true
	case models.EmergencyStatusCompleted:
		return ActionCompleteEmergency, true
	case models.EmergencyStatusCancelled:
		return ActionCancelEmergency, true
	}
	return "", false
}

// Subject is the acting user as seen by the authorizer.
type Subject struct {
	UserID primitive.ObjectID
	Role   models.UserRole
}

// Resolve derives the subject's relationships to the given entities. Any of
// emergency, ambulance, or hospital may be nil when not yet bound.
func Resolve(subject Subject, emergency *models.Emergency, ambulance *models.Ambulance, hospital *models.Hospital) []Relationship {
	var rels []Relationship

	if subject.Role == models.RoleAdmin {
		rels = append(rels, RelationAdmin)
	}

	if hospital != nil && subject.Role == models.RoleHospitalAdmin {
		for _, adminID := range hospital.AdministratorIDs {
			if adminID == subject.UserID {
				rels = append(rels, RelationHospitalAdmin)
				break
			}
		}
	}

	if ambulance != nil && ambulance.DriverID != nil && *ambulance.DriverID == subject.UserID {
		rels = append(rels, RelationAssignedDriver)
	}

	if emergency != nil {
		if emergency.PatientID == subject.UserID {
			rels = append(rels, RelationPatient)
		}
		if emergency.RequesterID == subject.UserID {
			rels = append(rels, RelationRequester)
		}
	}

	return rels
}

// Authorize returns a Forbidden error unless one of the relationships grants
// the action.
func Authorize(action Action, rels []Relationship) error {
	allowed, ok := capabilities[action]
	if !ok {
		return apperr.Forbidden("unknown action " + string(action))
	}

	for _, rel := range rels {
		for _, a := range allowed {
			if rel == a {
				return nil
			}
		}
	}

	return apperr.Forbidden("actor is not permitted to " + string(action))
}

package services

import (
	"context"
	"errors"
	"math"
	"testing"

	"ambudispatch/internal/apperr"
	"ambudispatch/internal/authz"
	"ambudispatch/internal/models"
	"ambudispatch/pkg/breaker"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type emergencyTestEnv struct {
	emergencies *fakeEmergencyRepo
	ambulances  *fakeAmbulanceRepo
	hospitals   *fakeHospitalRepo
	users       *fakeUserRepo
	mapsClient  *fakeMapsProvider
	notifier    *fakeNotificationService
	service     EmergencyService
}

func newEmergencyTestEnv() *emergencyTestEnv {
	env := &emergencyTestEnv{
		emergencies: newFakeEmergencyRepo(),
		ambulances:  newFakeAmbulanceRepo(),
		hospitals:   newFakeHospitalRepo(),
		users:       newFakeUserRepo(),
		mapsClient:  &fakeMapsProvider{},
		notifier:    &fakeNotificationService{},
	}
	env.service = NewEmergencyService(
		env.emergencies,
		env.ambulances,
		env.hospitals,
		env.users,
		env.mapsClient,
		breaker.New("GoogleMaps", testLogger()),
		env.notifier,
		nil,
		testLogger(),
	)
	return env
}

func (env *emergencyTestEnv) seedPatient() *models.User {
	return env.users.put(&models.User{Role: models.RoleUser, Phone: "+2348012345678"})
}

func (env *emergencyTestEnv) seedHospital(total, available int) *models.Hospital {
	return env.hospitals.put(&models.Hospital{
		Name:     "General Hospital",
		IsActive: true,
		Capacity: models.Capacity{Total: total, Available: available},
	})
}

func (env *emergencyTestEnv) seedAmbulance(driverID *primitive.ObjectID, status models.AmbulanceStatus) *models.Ambulance {
	return env.ambulances.put(&models.Ambulance{
		VehicleNumber: "AMB-001",
		Status:        status,
		DriverID:      driverID,
		Location:      models.NewPoint(6.52, 3.37),
	})
}

func (env *emergencyTestEnv) seedEmergency(patientID primitive.ObjectID, status models.EmergencyStatus) *models.Emergency {
	return env.emergencies.put(&models.Emergency{
		PatientID:   patientID,
		RequesterID: patientID,
		Status:      status,
		Location:    models.NewPoint(6.45, 3.40),
	})
}

func adminSubject(users *fakeUserRepo) authz.Subject {
	admin := users.put(&models.User{Role: models.RoleAdmin})
	return authz.Subject{UserID: admin.ID, Role: models.RoleAdmin}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name  string
		from  models.EmergencyStatus
		to    models.EmergencyStatus
		legal bool
	}{
		{"pending to assigned", models.EmergencyStatusPending, models.EmergencyStatusAssigned, true},
		{"assigned to en_route", models.EmergencyStatusAssigned, models.EmergencyStatusEnRoute, true},
		{"assigned straight to arrived_at_patient", models.EmergencyStatusAssigned, models.EmergencyStatusArrivedAtPatient, true},
		{"en_route to arrived_at_patient", models.EmergencyStatusEnRoute, models.EmergencyStatusArrivedAtPatient, true},
		{"arrived_at_patient to transporting", models.EmergencyStatusArrivedAtPatient, models.EmergencyStatusTransporting, true},
		{"transporting to arrived_at_hospital", models.EmergencyStatusTransporting, models.EmergencyStatusArrivedAtHospital, true},
		{"arrived_at_hospital to completed", models.EmergencyStatusArrivedAtHospital, models.EmergencyStatusCompleted, true},
		{"pending to cancelled", models.EmergencyStatusPending, models.EmergencyStatusCancelled, true},
		{"transporting to cancelled", models.EmergencyStatusTransporting, models.EmergencyStatusCancelled, true},
		{"pending skips to en_route", models.EmergencyStatusPending, models.EmergencyStatusEnRoute, false},
		{"pending skips to transporting", models.EmergencyStatusPending, models.EmergencyStatusTransporting, false},
		{"assigned back to pending", models.EmergencyStatusAssigned, models.EmergencyStatusPending, false},
		{"en_route skips arrival", models.EmergencyStatusEnRoute, models.EmergencyStatusTransporting, false},
		{"completed is terminal", models.EmergencyStatusCompleted, models.EmergencyStatusCancelled, false},
		{"cancelled is terminal", models.EmergencyStatusCancelled, models.EmergencyStatusAssigned, false},
		{"arrived_at_hospital cannot complete early from transporting", models.EmergencyStatusTransporting, models.EmergencyStatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := canTransition(tt.from, tt.to); got != tt.legal {
				t.Errorf("canTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.legal)
			}
		})
	}
}

func TestEmergencyServiceCreate(t *testing.T) {
	t.Run("patient reports for themselves", func(t *testing.T) {
		env := newEmergencyTestEnv()
		patient := env.seedPatient()
		actor := authz.Subject{UserID: patient.ID, Role: models.RoleUser}

		emergency, err := env.service.Create(context.Background(), actor, &CreateEmergencyRequest{
			Latitude:  6.45,
			Longitude: 3.40,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if emergency.Status != models.EmergencyStatusPending {
			t.Errorf("status = %s, want pending", emergency.Status)
		}
		if emergency.PatientID != patient.ID {
			t.Errorf("patient id = %s, want %s", emergency.PatientID.Hex(), patient.ID.Hex())
		}
		if emergency.Version != 1 {
			t.Errorf("version = %d, want 1", emergency.Version)
		}
		if len(emergency.Timeline) != 1 || emergency.Timeline[0].Status != models.EmergencyStatusPending {
			t.Errorf("timeline should open with a pending entry, got %+v", emergency.Timeline)
		}
		if emergency.Type != models.EmergencyTypeMedical {
			t.Errorf("type = %s, want default medical", emergency.Type)
		}
	})

	t.Run("admin reports on behalf of a patient", func(t *testing.T) {
		env := newEmergencyTestEnv()
		patient := env.seedPatient()
		actor := adminSubject(env.users)

		emergency, err := env.service.Create(context.Background(), actor, &CreateEmergencyRequest{
			PatientID: patient.ID.Hex(),
			Latitude:  6.45,
			Longitude: 3.40,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if emergency.PatientID != patient.ID {
			t.Errorf("patient id = %s, want %s", emergency.PatientID.Hex(), patient.ID.Hex())
		}
		if emergency.RequesterID != actor.UserID {
			t.Errorf("requester id = %s, want %s", emergency.RequesterID.Hex(), actor.UserID.Hex())
		}
	})

	t.Run("non-admin cannot report for another patient", func(t *testing.T) {
		env := newEmergencyTestEnv()
		patient := env.seedPatient()
		other := env.seedPatient()
		actor := authz.Subject{UserID: other.ID, Role: models.RoleUser}

		_, err := env.service.Create(context.Background(), actor, &CreateEmergencyRequest{
			PatientID: patient.ID.Hex(),
			Latitude:  6.45,
			Longitude: 3.40,
		})
		if !apperr.IsForbidden(err) {
			t.Errorf("error = %v, want forbidden", err)
		}
	})

	t.Run("rejects out-of-range coordinates", func(t *testing.T) {
		env := newEmergencyTestEnv()
		patient := env.seedPatient()
		actor := authz.Subject{UserID: patient.ID, Role: models.RoleUser}

		_, err := env.service.Create(context.Background(), actor, &CreateEmergencyRequest{
			Latitude:  120.0,
			Longitude: 3.40,
		})
		if !apperr.IsValidation(err) {
			t.Errorf("error = %v, want validation", err)
		}
	})
}

func TestEmergencyServiceAssign(t *testing.T) {
	t.Run("assigns ambulance and reserves capacity", func(t *testing.T) {
		env := newEmergencyTestEnv()
		patient := env.seedPatient()
		driver := env.users.put(&models.User{Role: models.RoleDriver})
		ambulance := env.seedAmbulance(&driver.ID, models.AmbulanceStatusAvailable)
		hospital := env.seedHospital(10, 2)
		emergency := env.seedEmergency(patient.ID, models.EmergencyStatusPending)
		actor := adminSubject(env.users)

		updated, warnings, err := env.service.Assign(context.Background(), actor, emergency.ID, &AssignRequest{
			AmbulanceID: ambulance.ID.Hex(),
			HospitalID:  hospital.ID.Hex(),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(warnings) != 0 {
			t.Errorf("warnings = %v, want none", warnings)
		}
		if updated.Status != models.EmergencyStatusAssigned {
			t.Errorf("status = %s, want assigned", updated.Status)
		}
		if updated.Version != 2 {
			t.Errorf("version = %d, want 2", updated.Version)
		}
		if updated.AmbulanceID == nil || *updated.AmbulanceID != ambulance.ID {
			t.Error("ambulance id not recorded on emergency")
		}
		if updated.AssignedAt == nil {
			t.Error("assigned_at not set")
		}
		if updated.Route == nil || updated.Route.EncodedPolyline != "abc123" {
			t.Errorf("route snapshot missing, got %+v", updated.Route)
		}
		if math.Abs(updated.Route.Distance-4.2) > 1e-9 {
			t.Errorf("route distance = %v km, want 4.2", updated.Route.Distance)
		}

		storedAmbulance := env.ambulances.ambulances[ambulance.ID]
		if storedAmbulance.Status != models.AmbulanceStatusBusy {
			t.Errorf("ambulance status = %s, want busy", storedAmbulance.Status)
		}
		if storedAmbulance.ActiveEmergencyID == nil || *storedAmbulance.ActiveEmergencyID != emergency.ID {
			t.Error("ambulance not linked to the emergency")
		}
		if got := env.hospitals.hospitals[hospital.ID].Capacity.Available; got != 1 {
			t.Errorf("available capacity = %d, want 1", got)
		}
		if !env.notifier.notifiedUser(patient.ID) {
			t.Error("patient was not notified")
		}
		if !env.notifier.notifiedUser(driver.ID) {
			t.Error("driver was not notified")
		}
	})

	t.Run("hospital may be omitted at assignment time", func(t *testing.T) {
		env := newEmergencyTestEnv()
		patient := env.seedPatient()
		driver := env.users.put(&models.User{Role: models.RoleDriver})
		ambulance := env.seedAmbulance(&driver.ID, models.AmbulanceStatusAvailable)
		hospital := env.seedHospital(10, 2)
		emergency := env.seedEmergency(patient.ID, models.EmergencyStatusPending)
		actor := adminSubject(env.users)

		updated, warnings, err := env.service.Assign(context.Background(), actor, emergency.ID, &AssignRequest{
			AmbulanceID: ambulance.ID.Hex(),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(warnings) != 0 {
			t.Errorf("warnings = %v, want none", warnings)
		}
		if updated.Status != models.EmergencyStatusAssigned {
			t.Errorf("status = %s, want assigned", updated.Status)
		}
		if updated.HospitalID != nil {
			t.Errorf("hospital id = %v, want none recorded", updated.HospitalID)
		}
		if got := env.hospitals.hospitals[hospital.ID].Capacity.Available; got != 2 {
			t.Errorf("available capacity = %d, want untouched 2", got)
		}
		if env.ambulances.ambulances[ambulance.ID].Status != models.AmbulanceStatusBusy {
			t.Error("ambulance was not marked busy")
		}
	})

	t.Run("hospital admin may assign to their hospital", func(t *testing.T) {
		env := newEmergencyTestEnv()
		patient := env.seedPatient()
		driver := env.users.put(&models.User{Role: models.RoleDriver})
		ambulance := env.seedAmbulance(&driver.ID, models.AmbulanceStatusAvailable)
		hospital := env.seedHospital(5, 5)
		hospitalAdmin := env.users.put(&models.User{Role: models.RoleHospitalAdmin})
		hospital.AdministratorIDs = []primitive.ObjectID{hospitalAdmin.ID}
		emergency := env.seedEmergency(patient.ID, models.EmergencyStatusPending)
		actor := authz.Subject{UserID: hospitalAdmin.ID, Role: models.RoleHospitalAdmin}

		_, _, err := env.service.Assign(context.Background(), actor, emergency.ID, &AssignRequest{
			AmbulanceID: ambulance.ID.Hex(),
			HospitalID:  hospital.ID.Hex(),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("plain user may not assign", func(t *testing.T) {
		env := newEmergencyTestEnv()
		patient := env.seedPatient()
		driver := env.users.put(&models.User{Role: models.RoleDriver})
		ambulance := env.seedAmbulance(&driver.ID, models.AmbulanceStatusAvailable)
		hospital := env.seedHospital(5, 5)
		emergency := env.seedEmergency(patient.ID, models.EmergencyStatusPending)
		actor := authz.Subject{UserID: patient.ID, Role: models.RoleUser}

		_, _, err := env.service.Assign(context.Background(), actor, emergency.ID, &AssignRequest{
			AmbulanceID: ambulance.ID.Hex(),
			HospitalID:  hospital.ID.Hex(),
		})
		if !apperr.IsForbidden(err) {
			t.Errorf("error = %v, want forbidden", err)
		}
	})

	t.Run("only pending emergencies can be assigned", func(t *testing.T) {
		env := newEmergencyTestEnv()
		patient := env.seedPatient()
		driver := env.users.put(&models.User{Role: models.RoleDriver})
		ambulance := env.seedAmbulance(&driver.ID, models.AmbulanceStatusAvailable)
		hospital := env.seedHospital(5, 5)
		emergency := env.seedEmergency(patient.ID, models.EmergencyStatusEnRoute)
		actor := adminSubject(env.users)

		_, _, err := env.service.Assign(context.Background(), actor, emergency.ID, &AssignRequest{
			AmbulanceID: ambulance.ID.Hex(),
			HospitalID:  hospital.ID.Hex(),
		})
		if !apperr.IsInvalidTransition(err) {
			t.Errorf("error = %v, want invalid transition", err)
		}
	})

	t.Run("rejects ambulance without driver", func(t *testing.T) {
		env := newEmergencyTestEnv()
		patient := env.seedPatient()
		ambulance := env.seedAmbulance(nil, models.AmbulanceStatusAvailable)
		hospital := env.seedHospital(5, 5)
		emergency := env.seedEmergency(patient.ID, models.EmergencyStatusPending)
		actor := adminSubject(env.users)

		_, _, err := env.service.Assign(context.Background(), actor, emergency.ID, &AssignRequest{
			AmbulanceID: ambulance.ID.Hex(),
			HospitalID:  hospital.ID.Hex(),
		})
		if !apperr.IsConflict(err) {
			t.Errorf("error = %v, want conflict", err)
		}
	})

	t.Run("rejects busy ambulance", func(t *testing.T) {
		env := newEmergencyTestEnv()
		patient := env.seedPatient()
		driver := env.users.put(&models.User{Role: models.RoleDriver})
		ambulance := env.seedAmbulance(&driver.ID, models.AmbulanceStatusBusy)
		hospital := env.seedHospital(5, 5)
		emergency := env.seedEmergency(patient.ID, models.EmergencyStatusPending)
		actor := adminSubject(env.users)

		_, _, err := env.service.Assign(context.Background(), actor, emergency.ID, &AssignRequest{
			AmbulanceID: ambulance.ID.Hex(),
			HospitalID:  hospital.ID.Hex(),
		})
		if !apperr.IsConflict(err) {
			t.Errorf("error = %v, want conflict", err)
		}
	})

	t.Run("rejects inactive hospital", func(t *testing.T) {
		env := newEmergencyTestEnv()
		patient := env.seedPatient()
		driver := env.users.put(&models.User{Role: models.RoleDriver})
		ambulance := env.seedAmbulance(&driver.ID, models.AmbulanceStatusAvailable)
		hospital := env.seedHospital(5, 5)
		hospital.IsActive = false
		emergency := env.seedEmergency(patient.ID, models.EmergencyStatusPending)
		actor := adminSubject(env.users)

		_, _, err := env.service.Assign(context.Background(), actor, emergency.ID, &AssignRequest{
			AmbulanceID: ambulance.ID.Hex(),
			HospitalID:  hospital.ID.Hex(),
		})
		if !apperr.IsConflict(err) {
			t.Errorf("error = %v, want conflict", err)
		}
	})

	t.Run("full hospital still gets the assignment with a warning", func(t *testing.T) {
		env := newEmergencyTestEnv()
		patient := env.seedPatient()
		driver := env.users.put(&models.User{Role: models.RoleDriver})
		ambulance := env.seedAmbulance(&driver.ID, models.AmbulanceStatusAvailable)
		hospital := env.seedHospital(3, 0)
		emergency := env.seedEmergency(patient.ID, models.EmergencyStatusPending)
		actor := adminSubject(env.users)

		updated, warnings, err := env.service.Assign(context.Background(), actor, emergency.ID, &AssignRequest{
			AmbulanceID: ambulance.ID.Hex(),
			HospitalID:  hospital.ID.Hex(),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if updated.Status != models.EmergencyStatusAssigned {
			t.Errorf("status = %s, want assigned", updated.Status)
		}
		if len(warnings) != 1 || warnings[0] != "hospital has no available capacity" {
			t.Errorf("warnings = %v, want capacity warning", warnings)
		}
		if got := env.hospitals.hospitals[hospital.ID].Capacity.Available; got != 0 {
			t.Errorf("available capacity = %d, want still 0", got)
		}
	})

	t.Run("route provider failure degrades to a warning", func(t *testing.T) {
		env := newEmergencyTestEnv()
		env.mapsClient.directionsErr = errors.New("upstream timeout")
		patient := env.seedPatient()
		driver := env.users.put(&models.User{Role: models.RoleDriver})
		ambulance := env.seedAmbulance(&driver.ID, models.AmbulanceStatusAvailable)
		hospital := env.seedHospital(5, 5)
		emergency := env.seedEmergency(patient.ID, models.EmergencyStatusPending)
		actor := adminSubject(env.users)

		updated, warnings, err := env.service.Assign(context.Background(), actor, emergency.ID, &AssignRequest{
			AmbulanceID: ambulance.ID.Hex(),
			HospitalID:  hospital.ID.Hex(),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if updated.Route != nil {
			t.Errorf("route = %+v, want none", updated.Route)
		}
		if len(warnings) != 1 || warnings[0] != "route lookup unavailable" {
			t.Errorf("warnings = %v, want route warning", warnings)
		}
	})

	t.Run("concurrent winner leaves the loser without side effects", func(t *testing.T) {
		env := newEmergencyTestEnv()
		patient := env.seedPatient()
		driver := env.users.put(&models.User{Role: models.RoleDriver})
		ambulance := env.seedAmbulance(&driver.ID, models.AmbulanceStatusAvailable)
		hospital := env.seedHospital(5, 5)
		emergency := env.seedEmergency(patient.ID, models.EmergencyStatusPending)
		actor := adminSubject(env.users)

		// Reads observe a version one behind the store, as if another
		// assignment committed between read and write.
		stale := &staleReadEmergencyRepo{env.emergencies}
		service := NewEmergencyService(stale, env.ambulances, env.hospitals, env.users,
			env.mapsClient, breaker.New("GoogleMaps", testLogger()), env.notifier, nil, testLogger())
		env.emergencies.emergencies[emergency.ID].Version = 2

		_, _, err := service.Assign(context.Background(), actor, emergency.ID, &AssignRequest{
			AmbulanceID: ambulance.ID.Hex(),
			HospitalID:  hospital.ID.Hex(),
		})
		if !apperr.IsConflict(err) {
			t.Fatalf("error = %v, want conflict", err)
		}
		if env.ambulances.busyCalls != 0 {
			t.Error("losing assignment marked the ambulance busy")
		}
		if got := env.hospitals.hospitals[hospital.ID].Capacity.Available; got != 5 {
			t.Errorf("available capacity = %d, want untouched 5", got)
		}
		if env.emergencies.emergencies[emergency.ID].Status != models.EmergencyStatusPending {
			t.Error("losing assignment changed the emergency status")
		}
	})
}

// staleReadEmergencyRepo returns documents one version behind the store so
// the conditional write misses.
type staleReadEmergencyRepo struct {
	*fakeEmergencyRepo
}

func (r *staleReadEmergencyRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Emergency, error) {
	emergency, err := r.fakeEmergencyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	emergency.Version--
	return emergency, nil
}

func TestEmergencyServiceUpdateStatus(t *testing.T) {
	// seedAssigned wires a full assigned emergency with its ambulance,
	// driver, and hospital so tests can walk the lifecycle from there.
	seedAssigned := func(env *emergencyTestEnv, status models.EmergencyStatus, available int) (*models.Emergency, *models.User, *models.Hospital, *models.Ambulance) {
		patient := env.seedPatient()
		driver := env.users.put(&models.User{Role: models.RoleDriver})
		hospital := env.seedHospital(5, available)
		ambulance := env.seedAmbulance(&driver.ID, models.AmbulanceStatusBusy)
		emergency := env.seedEmergency(patient.ID, status)
		emergency.AmbulanceID = &ambulance.ID
		emergency.HospitalID = &hospital.ID
		ambulance.ActiveEmergencyID = &emergency.ID
		return emergency, driver, hospital, ambulance
	}

	t.Run("assigned driver advances to en_route", func(t *testing.T) {
		env := newEmergencyTestEnv()
		emergency, driver, _, _ := seedAssigned(env, models.EmergencyStatusAssigned, 4)
		actor := authz.Subject{UserID: driver.ID, Role: models.RoleDriver}

		updated, err := env.service.UpdateStatus(context.Background(), actor, emergency.ID, &UpdateStatusRequest{
			Status: models.EmergencyStatusEnRoute,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if updated.Status != models.EmergencyStatusEnRoute {
			t.Errorf("status = %s, want en_route", updated.Status)
		}
		if len(updated.Timeline) != 1 || updated.Timeline[0].Status != models.EmergencyStatusEnRoute {
			t.Errorf("timeline entry missing, got %+v", updated.Timeline)
		}
	})

	t.Run("patient may not drive the lifecycle", func(t *testing.T) {
		env := newEmergencyTestEnv()
		emergency, _, _, _ := seedAssigned(env, models.EmergencyStatusAssigned, 4)
		actor := authz.Subject{UserID: emergency.PatientID, Role: models.RoleUser}

		_, err := env.service.UpdateStatus(context.Background(), actor, emergency.ID, &UpdateStatusRequest{
			Status: models.EmergencyStatusEnRoute,
		})
		if !apperr.IsForbidden(err) {
			t.Errorf("error = %v, want forbidden", err)
		}
	})

	t.Run("illegal edge is rejected before authorization", func(t *testing.T) {
		env := newEmergencyTestEnv()
		patient := env.seedPatient()
		emergency := env.seedEmergency(patient.ID, models.EmergencyStatusPending)
		// Actor with no standing at all; legality must still be the answer.
		actor := authz.Subject{UserID: primitive.NewObjectID(), Role: models.RoleUser}

		_, err := env.service.UpdateStatus(context.Background(), actor, emergency.ID, &UpdateStatusRequest{
			Status: models.EmergencyStatusTransporting,
		})
		if !apperr.IsInvalidTransition(err) {
			t.Errorf("error = %v, want invalid transition", err)
		}
	})

	t.Run("completion releases the ambulance and restores capacity", func(t *testing.T) {
		env := newEmergencyTestEnv()
		emergency, driver, hospital, ambulance := seedAssigned(env, models.EmergencyStatusArrivedAtHospital, 2)
		actor := authz.Subject{UserID: driver.ID, Role: models.RoleDriver}

		updated, err := env.service.UpdateStatus(context.Background(), actor, emergency.ID, &UpdateStatusRequest{
			Status: models.EmergencyStatusCompleted,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if updated.Status != models.EmergencyStatusCompleted {
			t.Errorf("status = %s, want completed", updated.Status)
		}
		if updated.CompletedAt == nil {
			t.Error("completed_at not set")
		}
		storedAmbulance := env.ambulances.ambulances[ambulance.ID]
		if storedAmbulance.Status != models.AmbulanceStatusAvailable || storedAmbulance.ActiveEmergencyID != nil {
			t.Errorf("ambulance not released: %+v", storedAmbulance)
		}
		if got := env.hospitals.hospitals[hospital.ID].Capacity.Available; got != 3 {
			t.Errorf("available capacity = %d, want 3", got)
		}
	})

	t.Run("patient cancellation releases the ambulance and keeps the reason", func(t *testing.T) {
		env := newEmergencyTestEnv()
		emergency, _, hospital, ambulance := seedAssigned(env, models.EmergencyStatusEnRoute, 2)
		actor := authz.Subject{UserID: emergency.PatientID, Role: models.RoleUser}

		updated, err := env.service.UpdateStatus(context.Background(), actor, emergency.ID, &UpdateStatusRequest{
			Status: models.EmergencyStatusCancelled,
			Reason: "patient recovered",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if updated.CancelledAt == nil || updated.CancelReason != "patient recovered" {
			t.Errorf("cancellation fields not recorded: %+v", updated)
		}
		if env.ambulances.ambulances[ambulance.ID].Status != models.AmbulanceStatusAvailable {
			t.Error("ambulance not released on cancel")
		}
		// Capacity comes back on completion only.
		if got := env.hospitals.hospitals[hospital.ID].Capacity.Available; got != 2 {
			t.Errorf("available capacity = %d, want unchanged 2", got)
		}
	})

	t.Run("capacity restore is capped at total", func(t *testing.T) {
		env := newEmergencyTestEnv()
		emergency, driver, hospital, _ := seedAssigned(env, models.EmergencyStatusArrivedAtHospital, 5)
		actor := authz.Subject{UserID: driver.ID, Role: models.RoleDriver}

		_, err := env.service.UpdateStatus(context.Background(), actor, emergency.ID, &UpdateStatusRequest{
			Status: models.EmergencyStatusCompleted,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := env.hospitals.hospitals[hospital.ID].Capacity.Available; got != 5 {
			t.Errorf("available capacity = %d, want capped at total 5", got)
		}
	})

	t.Run("driver may not cancel", func(t *testing.T) {
		env := newEmergencyTestEnv()
		emergency, driver, _, _ := seedAssigned(env, models.EmergencyStatusEnRoute, 2)
		actor := authz.Subject{UserID: driver.ID, Role: models.RoleDriver}

		_, err := env.service.UpdateStatus(context.Background(), actor, emergency.ID, &UpdateStatusRequest{
			Status: models.EmergencyStatusCancelled,
		})
		if !apperr.IsForbidden(err) {
			t.Errorf("error = %v, want forbidden", err)
		}
	})

	t.Run("terminal emergencies reject further transitions", func(t *testing.T) {
		env := newEmergencyTestEnv()
		emergency, _, _, _ := seedAssigned(env, models.EmergencyStatusCompleted, 2)
		actor := adminSubject(env.users)

		_, err := env.service.UpdateStatus(context.Background(), actor, emergency.ID, &UpdateStatusRequest{
			Status: models.EmergencyStatusCancelled,
		})
		if !apperr.IsInvalidTransition(err) {
			t.Errorf("error = %v, want invalid transition", err)
		}
	})
}

func TestEmergencyServiceList(t *testing.T) {
	env := newEmergencyTestEnv()

	hospital := env.seedHospital(5, 5)
	otherHospital := env.seedHospital(5, 5)
	driver := env.users.put(&models.User{Role: models.RoleDriver})
	ambulance := env.seedAmbulance(&driver.ID, models.AmbulanceStatusBusy)
	patient := env.seedPatient()
	otherPatient := env.seedPatient()

	mine := env.seedEmergency(patient.ID, models.EmergencyStatusTransporting)
	mine.HospitalID = &hospital.ID
	mine.AmbulanceID = &ambulance.ID
	theirs := env.seedEmergency(otherPatient.ID, models.EmergencyStatusPending)
	theirs.HospitalID = &otherHospital.ID

	hospitalAdmin := env.users.put(&models.User{
		Role:                    models.RoleHospitalAdmin,
		AdministeredHospitalIDs: []primitive.ObjectID{hospital.ID},
	})

	t.Run("admin sees everything", func(t *testing.T) {
		actor := adminSubject(env.users)
		results, total, err := env.service.List(context.Background(), actor, "", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if total != 2 || len(results) != 2 {
			t.Errorf("got %d results, want 2", len(results))
		}
	})

	t.Run("hospital admin sees only their hospitals", func(t *testing.T) {
		actor := authz.Subject{UserID: hospitalAdmin.ID, Role: models.RoleHospitalAdmin}
		results, _, err := env.service.List(context.Background(), actor, "", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != 1 || results[0].ID != mine.ID {
			t.Errorf("got %d results, want only the administered hospital's emergency", len(results))
		}
	})

	t.Run("driver sees only their ambulance's emergencies", func(t *testing.T) {
		actor := authz.Subject{UserID: driver.ID, Role: models.RoleDriver}
		results, _, err := env.service.List(context.Background(), actor, "", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != 1 || results[0].ID != mine.ID {
			t.Errorf("got %d results, want only the assigned emergency", len(results))
		}
	})

	t.Run("driver without an ambulance sees nothing", func(t *testing.T) {
		idle := env.users.put(&models.User{Role: models.RoleDriver})
		actor := authz.Subject{UserID: idle.ID, Role: models.RoleDriver}
		results, total, err := env.service.List(context.Background(), actor, "", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if total != 0 || len(results) != 0 {
			t.Errorf("got %d results, want none", len(results))
		}
	})

	t.Run("plain user sees their own", func(t *testing.T) {
		actor := authz.Subject{UserID: patient.ID, Role: models.RoleUser}
		results, _, err := env.service.List(context.Background(), actor, "", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != 1 || results[0].ID != mine.ID {
			t.Errorf("got %d results, want only the caller's emergency", len(results))
		}
	})

	t.Run("status filter composes with scoping", func(t *testing.T) {
		actor := adminSubject(env.users)
		results, _, err := env.service.List(context.Background(), actor, models.EmergencyStatusPending, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != 1 || results[0].ID != theirs.ID {
			t.Errorf("got %d results, want only the pending emergency", len(results))
		}
	})
}

func TestEmergencyLifecycleRoundTrip(t *testing.T) {
	env := newEmergencyTestEnv()
	patient := env.seedPatient()
	driver := env.users.put(&models.User{Role: models.RoleDriver})
	ambulance := env.seedAmbulance(&driver.ID, models.AmbulanceStatusAvailable)
	hospital := env.seedHospital(5, 1)
	emergency := env.seedEmergency(patient.ID, models.EmergencyStatusPending)
	admin := adminSubject(env.users)
	driverActor := authz.Subject{UserID: driver.ID, Role: models.RoleDriver}

	if _, _, err := env.service.Assign(context.Background(), admin, emergency.ID, &AssignRequest{
		AmbulanceID: ambulance.ID.Hex(),
		HospitalID:  hospital.ID.Hex(),
	}); err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	if got := env.hospitals.hospitals[hospital.ID].Capacity.Available; got != 0 {
		t.Fatalf("available capacity after assign = %d, want 0", got)
	}

	for _, next := range []models.EmergencyStatus{
		models.EmergencyStatusEnRoute,
		models.EmergencyStatusArrivedAtPatient,
		models.EmergencyStatusTransporting,
		models.EmergencyStatusArrivedAtHospital,
		models.EmergencyStatusCompleted,
	} {
		if _, err := env.service.UpdateStatus(context.Background(), driverActor, emergency.ID, &UpdateStatusRequest{Status: next}); err != nil {
			t.Fatalf("transition to %s failed: %v", next, err)
		}
	}

	final := env.emergencies.emergencies[emergency.ID]
	if final.Status != models.EmergencyStatusCompleted {
		t.Errorf("status = %s, want completed", final.Status)
	}
	if got := env.hospitals.hospitals[hospital.ID].Capacity.Available; got != 1 {
		t.Errorf("available capacity after completion = %d, want 1", got)
	}
	if env.ambulances.ambulances[ambulance.ID].Status != models.AmbulanceStatusAvailable {
		t.Error("ambulance not back in service")
	}
	// assign + five transitions, each appending one entry.
	if got := len(final.Timeline); got != 6 {
		t.Errorf("timeline has %d entries, want 6", got)
	}
	if final.Version != 7 {
		t.Errorf("version = %d, want 7", final.Version)
	}
}

func TestEmergencyServiceAddFeedback(t *testing.T) {
	seedCompleted := func(env *emergencyTestEnv, hospital *models.Hospital) *models.Emergency {
		patient := env.seedPatient()
		emergency := env.seedEmergency(patient.ID, models.EmergencyStatusCompleted)
		if hospital != nil {
			emergency.HospitalID = &hospital.ID
		}
		return emergency
	}

	t.Run("patient rates and the hospital average folds in", func(t *testing.T) {
		env := newEmergencyTestEnv()
		hospital := env.seedHospital(5, 5)
		hospital.Rating = models.Rating{Average: 4.0, Count: 2}
		emergency := seedCompleted(env, hospital)
		actor := authz.Subject{UserID: emergency.PatientID, Role: models.RoleUser}

		updated, err := env.service.AddFeedback(context.Background(), actor, emergency.ID, &FeedbackRequest{
			Rating:  5,
			Comment: "fast response",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if updated.Feedback == nil || updated.Feedback.Rating != 5 {
			t.Errorf("feedback not recorded: %+v", updated.Feedback)
		}

		rating := env.hospitals.hospitals[hospital.ID].Rating
		if rating.Count != 3 {
			t.Errorf("rating count = %d, want 3", rating.Count)
		}
		want := (4.0*2 + 5) / 3
		if math.Abs(rating.Average-want) > 1e-9 {
			t.Errorf("rating average = %v, want %v", rating.Average, want)
		}
	})

	t.Run("feedback only on completed emergencies", func(t *testing.T) {
		env := newEmergencyTestEnv()
		patient := env.seedPatient()
		emergency := env.seedEmergency(patient.ID, models.EmergencyStatusTransporting)
		actor := authz.Subject{UserID: patient.ID, Role: models.RoleUser}

		_, err := env.service.AddFeedback(context.Background(), actor, emergency.ID, &FeedbackRequest{Rating: 4})
		if !apperr.IsConflict(err) {
			t.Errorf("error = %v, want conflict", err)
		}
	})

	t.Run("second submission is rejected", func(t *testing.T) {
		env := newEmergencyTestEnv()
		emergency := seedCompleted(env, nil)
		actor := authz.Subject{UserID: emergency.PatientID, Role: models.RoleUser}

		if _, err := env.service.AddFeedback(context.Background(), actor, emergency.ID, &FeedbackRequest{Rating: 4}); err != nil {
			t.Fatalf("first submission failed: %v", err)
		}
		_, err := env.service.AddFeedback(context.Background(), actor, emergency.ID, &FeedbackRequest{Rating: 2})
		if !apperr.IsConflict(err) {
			t.Errorf("error = %v, want conflict", err)
		}
	})

	t.Run("only the patient or requester may rate", func(t *testing.T) {
		env := newEmergencyTestEnv()
		emergency := seedCompleted(env, nil)
		stranger := env.seedPatient()
		actor := authz.Subject{UserID: stranger.ID, Role: models.RoleUser}

		_, err := env.service.AddFeedback(context.Background(), actor, emergency.ID, &FeedbackRequest{Rating: 4})
		if !apperr.IsForbidden(err) {
			t.Errorf("error = %v, want forbidden", err)
		}
	})

	t.Run("rating bounds are enforced", func(t *testing.T) {
		env := newEmergencyTestEnv()
		emergency := seedCompleted(env, nil)
		actor := authz.Subject{UserID: emergency.PatientID, Role: models.RoleUser}

		for _, rating := range []int{0, 6, -1} {
			if _, err := env.service.AddFeedback(context.Background(), actor, emergency.ID, &FeedbackRequest{Rating: rating}); !apperr.IsValidation(err) {
				t.Errorf("rating %d: error = %v, want validation", rating, err)
			}
		}
	})
}

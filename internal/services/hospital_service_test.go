package services

import (
	"context"
	"testing"

	"ambudispatch/internal/apperr"
	"ambudispatch/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type hospitalTestEnv struct {
	hospitals  *fakeHospitalRepo
	users      *fakeUserRepo
	ambulances *fakeAmbulanceRepo
	service    HospitalService
}

func newHospitalTestEnv() *hospitalTestEnv {
	env := &hospitalTestEnv{
		hospitals:  newFakeHospitalRepo(),
		users:      newFakeUserRepo(),
		ambulances: newFakeAmbulanceRepo(),
	}
	env.service = NewHospitalService(env.hospitals, env.users, env.ambulances, testLogger())
	return env
}

func TestHospitalServiceCreate(t *testing.T) {
	env := newHospitalTestEnv()

	hospital, err := env.service.Create(context.Background(), &CreateHospitalRequest{
		Name:      "General Hospital",
		Latitude:  6.45,
		Longitude: 3.40,
		TotalBeds: 20,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !hospital.IsActive {
		t.Error("new hospital should be active")
	}
	if hospital.Capacity.Total != 20 || hospital.Capacity.Available != 20 {
		t.Errorf("capacity = %+v, want all beds available", hospital.Capacity)
	}
}

func TestHospitalServiceUpdate(t *testing.T) {
	t.Run("shrinking total clamps available", func(t *testing.T) {
		env := newHospitalTestEnv()
		hospital := env.hospitals.put(&models.Hospital{
			Name:     "General Hospital",
			IsActive: true,
			Capacity: models.Capacity{Total: 20, Available: 15},
		})

		total := 10
		updated, err := env.service.Update(context.Background(), hospital.ID, &UpdateHospitalRequest{TotalBeds: &total})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if updated.Capacity.Total != 10 || updated.Capacity.Available != 10 {
			t.Errorf("capacity = %+v, want available clamped to 10", updated.Capacity)
		}
	})

	t.Run("growing total leaves available alone", func(t *testing.T) {
		env := newHospitalTestEnv()
		hospital := env.hospitals.put(&models.Hospital{
			Name:     "General Hospital",
			IsActive: true,
			Capacity: models.Capacity{Total: 10, Available: 4},
		})

		total := 30
		updated, err := env.service.Update(context.Background(), hospital.ID, &UpdateHospitalRequest{TotalBeds: &total})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if updated.Capacity.Total != 30 || updated.Capacity.Available != 4 {
			t.Errorf("capacity = %+v, want total 30 available 4", updated.Capacity)
		}
	})
}

func TestHospitalServiceDelete(t *testing.T) {
	t.Run("detaches ambulances and demotes orphaned administrators", func(t *testing.T) {
		env := newHospitalTestEnv()
		hospital := env.hospitals.put(&models.Hospital{Name: "General Hospital", IsActive: true})
		ambulance := env.ambulances.put(&models.Ambulance{
			VehicleNumber: "AMB-001",
			Status:        models.AmbulanceStatusAvailable,
			HospitalID:    &hospital.ID,
		})
		orphan := env.users.put(&models.User{
			Role:                    models.RoleHospitalAdmin,
			AdministeredHospitalIDs: []primitive.ObjectID{hospital.ID},
		})
		otherHospital := env.hospitals.put(&models.Hospital{Name: "St Mary", IsActive: true})
		survivor := env.users.put(&models.User{
			Role:                    models.RoleHospitalAdmin,
			AdministeredHospitalIDs: []primitive.ObjectID{hospital.ID, otherHospital.ID},
		})

		if err := env.service.Delete(context.Background(), hospital.ID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if _, ok := env.hospitals.hospitals[hospital.ID]; ok {
			t.Error("hospital not deleted")
		}
		if env.ambulances.ambulances[ambulance.ID].HospitalID != nil {
			t.Error("ambulance not detached")
		}
		if got := env.users.users[orphan.ID].Role; got != models.RoleUser {
			t.Errorf("orphaned administrator role = %s, want demoted to user", got)
		}
		if got := env.users.users[survivor.ID].Role; got != models.RoleHospitalAdmin {
			t.Errorf("administrator of another hospital role = %s, want hospital_admin", got)
		}
		if got := len(env.users.users[survivor.ID].AdministeredHospitalIDs); got != 1 {
			t.Errorf("survivor administers %d hospitals, want 1", got)
		}
	})

	t.Run("blocked while an ambulance has an active emergency", func(t *testing.T) {
		env := newHospitalTestEnv()
		hospital := env.hospitals.put(&models.Hospital{Name: "General Hospital", IsActive: true})
		emergencyID := primitive.NewObjectID()
		env.ambulances.put(&models.Ambulance{
			VehicleNumber:     "AMB-001",
			Status:            models.AmbulanceStatusBusy,
			HospitalID:        &hospital.ID,
			ActiveEmergencyID: &emergencyID,
		})

		err := env.service.Delete(context.Background(), hospital.ID)
		if !apperr.IsConflict(err) {
			t.Errorf("error = %v, want conflict", err)
		}
		if _, ok := env.hospitals.hospitals[hospital.ID]; !ok {
			t.Error("hospital should survive a blocked delete")
		}
	})
}

func TestHospitalServiceAdministrators(t *testing.T) {
	t.Run("adding promotes a plain user", func(t *testing.T) {
		env := newHospitalTestEnv()
		hospital := env.hospitals.put(&models.Hospital{Name: "General Hospital", IsActive: true})
		user := env.users.put(&models.User{Role: models.RoleUser})

		if err := env.service.AddAdministrator(context.Background(), hospital.ID, user.ID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := env.users.users[user.ID].Role; got != models.RoleHospitalAdmin {
			t.Errorf("role = %s, want hospital_admin", got)
		}
		if got := len(env.hospitals.hospitals[hospital.ID].AdministratorIDs); got != 1 {
			t.Errorf("hospital has %d administrators, want 1", got)
		}
	})

	t.Run("adding keeps a global admin's role", func(t *testing.T) {
		env := newHospitalTestEnv()
		hospital := env.hospitals.put(&models.Hospital{Name: "General Hospital", IsActive: true})
		admin := env.users.put(&models.User{Role: models.RoleAdmin})

		if err := env.service.AddAdministrator(context.Background(), hospital.ID, admin.ID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := env.users.users[admin.ID].Role; got != models.RoleAdmin {
			t.Errorf("role = %s, want admin unchanged", got)
		}
	})

	t.Run("drivers cannot administer hospitals", func(t *testing.T) {
		env := newHospitalTestEnv()
		hospital := env.hospitals.put(&models.Hospital{Name: "General Hospital", IsActive: true})
		driver := env.users.put(&models.User{Role: models.RoleDriver})

		err := env.service.AddAdministrator(context.Background(), hospital.ID, driver.ID)
		if !apperr.IsValidation(err) {
			t.Errorf("error = %v, want validation", err)
		}
	})

	t.Run("removing the last hospital demotes the administrator", func(t *testing.T) {
		env := newHospitalTestEnv()
		hospital := env.hospitals.put(&models.Hospital{Name: "General Hospital", IsActive: true})
		user := env.users.put(&models.User{
			Role:                    models.RoleHospitalAdmin,
			AdministeredHospitalIDs: []primitive.ObjectID{hospital.ID},
		})
		hospital.AdministratorIDs = []primitive.ObjectID{user.ID}

		if err := env.service.RemoveAdministrator(context.Background(), hospital.ID, user.ID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := env.users.users[user.ID].Role; got != models.RoleUser {
			t.Errorf("role = %s, want demoted to user", got)
		}
	})

	t.Run("removing one of several hospitals keeps the role", func(t *testing.T) {
		env := newHospitalTestEnv()
		hospital := env.hospitals.put(&models.Hospital{Name: "General Hospital", IsActive: true})
		other := env.hospitals.put(&models.Hospital{Name: "St Mary", IsActive: true})
		user := env.users.put(&models.User{
			Role:                    models.RoleHospitalAdmin,
			AdministeredHospitalIDs: []primitive.ObjectID{hospital.ID, other.ID},
		})

		if err := env.service.RemoveAdministrator(context.Background(), hospital.ID, user.ID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := env.users.users[user.ID].Role; got != models.RoleHospitalAdmin {
			t.Errorf("role = %s, want hospital_admin", got)
		}
		if got := env.users.users[user.ID].AdministeredHospitalIDs; len(got) != 1 || got[0] != other.ID {
			t.Errorf("administered hospitals = %v, want only the remaining one", got)
		}
	})
}

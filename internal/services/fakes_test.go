package services

import (
	"context"
	"time"

	"ambudispatch/internal/models"
	"ambudispatch/internal/utils"
	"ambudispatch/pkg/logger"
	"ambudispatch/pkg/maps"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func testLogger() *logger.Logger {
	l, _ := logger.NewLogger(&logger.Config{Level: "error", Format: "text", Output: "stdout"})
	return l
}

// fakeEmergencyRepo is an in-memory EmergencyRepository.
type fakeEmergencyRepo struct {
	emergencies map[primitive.ObjectID]*models.Emergency
	applyErr    error
}

func newFakeEmergencyRepo() *fakeEmergencyRepo {
	return &fakeEmergencyRepo{emergencies: make(map[primitive.ObjectID]*models.Emergency)}
}

func (r *fakeEmergencyRepo) put(e *models.Emergency) *models.Emergency {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	if e.Version == 0 {
		e.Version = 1
	}
	r.emergencies[e.ID] = e
	return e
}

func (r *fakeEmergencyRepo) Create(ctx context.Context, e *models.Emergency) error {
	e.ID = primitive.NewObjectID()
	e.CreatedAt = time.Now()
	e.UpdatedAt = time.Now()
	r.emergencies[e.ID] = e
	return nil
}

func (r *fakeEmergencyRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Emergency, error) {
	e, ok := r.emergencies[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	copied := *e
	return &copied, nil
}

func (r *fakeEmergencyRepo) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	e, ok := r.emergencies[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	applyEmergencyUpdates(e, updates)
	return nil
}

func (r *fakeEmergencyRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	delete(r.emergencies, id)
	return nil
}

func (r *fakeEmergencyRepo) ApplyTransition(ctx context.Context, id primitive.ObjectID, version int64, updates map[string]interface{}, entry models.TimelineEntry) (bool, error) {
	if r.applyErr != nil {
		return false, r.applyErr
	}
	e, ok := r.emergencies[id]
	if !ok || e.Version != version {
		return false, nil
	}
	applyEmergencyUpdates(e, updates)
	e.Timeline = append(e.Timeline, entry)
	e.Version++
	return true, nil
}

func (r *fakeEmergencyRepo) List(ctx context.Context, filter bson.M, params *utils.PaginationParams) ([]*models.Emergency, int64, error) {
	var out []*models.Emergency
	for _, e := range r.emergencies {
		if matchEmergencyFilter(e, filter) {
			out = append(out, e)
		}
	}
	return out, int64(len(out)), nil
}

// matchEmergencyFilter evaluates the filter shapes the services actually
// build: status equality, hospital_id equality or $in, ambulance_id
// equality, and the patient/requester $or.
func matchEmergencyFilter(e *models.Emergency, filter bson.M) bool {
	for key, value := range filter {
		switch key {
		case "status":
			if e.Status != value.(models.EmergencyStatus) {
				return false
			}
		case "hospital_id":
			if in, ok := value.(bson.M); ok {
				found := false
				for _, id := range in["$in"].([]primitive.ObjectID) {
					if e.HospitalID != nil && *e.HospitalID == id {
						found = true
					}
				}
				if !found {
					return false
				}
			} else if e.HospitalID == nil || *e.HospitalID != value.(primitive.ObjectID) {
				return false
			}
		case "ambulance_id":
			if e.AmbulanceID == nil || *e.AmbulanceID != value.(primitive.ObjectID) {
				return false
			}
		case "$or":
			matched := false
			for _, cond := range value.([]bson.M) {
				for k, v := range cond {
					switch k {
					case "patient_id":
						if e.PatientID == v.(primitive.ObjectID) {
							matched = true
						}
					case "requester_id":
						if e.RequesterID == v.(primitive.ObjectID) {
							matched = true
						}
					}
				}
			}
			if !matched {
				return false
			}
		}
	}
	return true
}

func (r *fakeEmergencyRepo) GetByPatient(ctx context.Context, patientID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Emergency, int64, error) {
	var out []*models.Emergency
	for _, e := range r.emergencies {
		if e.PatientID == patientID {
			out = append(out, e)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeEmergencyRepo) GetActive(ctx context.Context) ([]*models.Emergency, error) {
	var out []*models.Emergency
	for _, e := range r.emergencies {
		if !e.IsTerminal() {
			out = append(out, e)
		}
	}
	return out, nil
}

func applyEmergencyUpdates(e *models.Emergency, updates map[string]interface{}) {
	for key, value := range updates {
		switch key {
		case "status":
			e.Status = value.(models.EmergencyStatus)
		case "ambulance_id":
			id := value.(primitive.ObjectID)
			e.AmbulanceID = &id
		case "hospital_id":
			id := value.(primitive.ObjectID)
			e.HospitalID = &id
		case "assigned_at":
			e.AssignedAt = value.(*time.Time)
		case "completed_at":
			e.CompletedAt = value.(*time.Time)
		case "cancelled_at":
			e.CancelledAt = value.(*time.Time)
		case "cancel_reason":
			e.CancelReason = value.(string)
		case "feedback":
			e.Feedback = value.(*models.Feedback)
		case "route":
			e.Route = value.(*models.Route)
		case "payment_id":
			id := value.(primitive.ObjectID)
			e.PaymentID = &id
		}
	}
	e.UpdatedAt = time.Now()
}

// fakeAmbulanceRepo is an in-memory AmbulanceRepository.
type fakeAmbulanceRepo struct {
	ambulances   map[primitive.ObjectID]*models.Ambulance
	busyCalls    int
	releaseCalls int
}

func newFakeAmbulanceRepo() *fakeAmbulanceRepo {
	return &fakeAmbulanceRepo{ambulances: make(map[primitive.ObjectID]*models.Ambulance)}
}

func (r *fakeAmbulanceRepo) put(a *models.Ambulance) *models.Ambulance {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	r.ambulances[a.ID] = a
	return a
}

func (r *fakeAmbulanceRepo) Create(ctx context.Context, a *models.Ambulance) error {
	a.ID = primitive.NewObjectID()
	r.ambulances[a.ID] = a
	return nil
}

func (r *fakeAmbulanceRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Ambulance, error) {
	a, ok := r.ambulances[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	copied := *a
	return &copied, nil
}

func (r *fakeAmbulanceRepo) GetByDriver(ctx context.Context, driverID primitive.ObjectID) (*models.Ambulance, error) {
	for _, a := range r.ambulances {
		if a.DriverID != nil && *a.DriverID == driverID {
			copied := *a
			return &copied, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (r *fakeAmbulanceRepo) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	a, ok := r.ambulances[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	for key, value := range updates {
		switch key {
		case "status":
			a.Status = value.(models.AmbulanceStatus)
		case "hospital_id":
			if value == nil {
				a.HospitalID = nil
			} else {
				id := value.(primitive.ObjectID)
				a.HospitalID = &id
			}
		case "driver_id":
			if value == nil {
				a.DriverID = nil
			} else {
				id := value.(primitive.ObjectID)
				a.DriverID = &id
			}
		}
	}
	return nil
}

func (r *fakeAmbulanceRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	delete(r.ambulances, id)
	return nil
}

func (r *fakeAmbulanceRepo) List(ctx context.Context, filter bson.M, params *utils.PaginationParams) ([]*models.Ambulance, int64, error) {
	var out []*models.Ambulance
	for _, a := range r.ambulances {
		out = append(out, a)
	}
	return out, int64(len(out)), nil
}

func (r *fakeAmbulanceRepo) GetNearby(ctx context.Context, lat, lng, radiusKM float64, limit int) ([]*models.Ambulance, error) {
	var out []*models.Ambulance
	for _, a := range r.ambulances {
		if a.IsAvailable() && a.HasDriver() {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAmbulanceRepo) MarkBusy(ctx context.Context, id, emergencyID primitive.ObjectID) error {
	a, ok := r.ambulances[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	a.Status = models.AmbulanceStatusBusy
	a.ActiveEmergencyID = &emergencyID
	r.busyCalls++
	return nil
}

func (r *fakeAmbulanceRepo) Release(ctx context.Context, id primitive.ObjectID) error {
	a, ok := r.ambulances[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	a.Status = models.AmbulanceStatusAvailable
	a.ActiveEmergencyID = nil
	r.releaseCalls++
	return nil
}

func (r *fakeAmbulanceRepo) UpdateLocation(ctx context.Context, id primitive.ObjectID, location *models.Location) error {
	a, ok := r.ambulances[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	a.Location = *location
	return nil
}

// fakeHospitalRepo is an in-memory HospitalRepository with the same
// conditional capacity semantics as the MongoDB implementation.
type fakeHospitalRepo struct {
	hospitals map[primitive.ObjectID]*models.Hospital
}

func newFakeHospitalRepo() *fakeHospitalRepo {
	return &fakeHospitalRepo{hospitals: make(map[primitive.ObjectID]*models.Hospital)}
}

func (r *fakeHospitalRepo) put(h *models.Hospital) *models.Hospital {
	if h.ID.IsZero() {
		h.ID = primitive.NewObjectID()
	}
	r.hospitals[h.ID] = h
	return h
}

func (r *fakeHospitalRepo) Create(ctx context.Context, h *models.Hospital) error {
	h.ID = primitive.NewObjectID()
	r.hospitals[h.ID] = h
	return nil
}

func (r *fakeHospitalRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Hospital, error) {
	h, ok := r.hospitals[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	copied := *h
	return &copied, nil
}

func (r *fakeHospitalRepo) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	h, ok := r.hospitals[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	for key, value := range updates {
		switch key {
		case "name":
			h.Name = value.(string)
		case "rating.average":
			h.Rating.Average = value.(float64)
		case "rating.count":
			h.Rating.Count = value.(int)
		case "capacity.total":
			h.Capacity.Total = value.(int)
		case "capacity.available":
			h.Capacity.Available = value.(int)
		case "is_active":
			h.IsActive = value.(bool)
		}
	}
	return nil
}

func (r *fakeHospitalRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	delete(r.hospitals, id)
	return nil
}

func (r *fakeHospitalRepo) List(ctx context.Context, filter bson.M, params *utils.PaginationParams) ([]*models.Hospital, int64, error) {
	var out []*models.Hospital
	for _, h := range r.hospitals {
		out = append(out, h)
	}
	return out, int64(len(out)), nil
}

func (r *fakeHospitalRepo) GetNearby(ctx context.Context, lat, lng, radiusKM float64, limit int) ([]*models.Hospital, error) {
	var out []*models.Hospital
	for _, h := range r.hospitals {
		if h.IsActive {
			out = append(out, h)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *fakeHospitalRepo) DecrementCapacity(ctx context.Context, id primitive.ObjectID) (bool, error) {
	h, ok := r.hospitals[id]
	if !ok {
		return false, mongo.ErrNoDocuments
	}
	if h.Capacity.Available <= 0 {
		return false, nil
	}
	h.Capacity.Available--
	return true, nil
}

func (r *fakeHospitalRepo) IncrementCapacity(ctx context.Context, id primitive.ObjectID) (bool, error) {
	h, ok := r.hospitals[id]
	if !ok {
		return false, mongo.ErrNoDocuments
	}
	if h.Capacity.Available >= h.Capacity.Total {
		return false, nil
	}
	h.Capacity.Available++
	return true, nil
}

func (r *fakeHospitalRepo) PushAmbulance(ctx context.Context, hospitalID, ambulanceID primitive.ObjectID) error {
	h, ok := r.hospitals[hospitalID]
	if !ok {
		return mongo.ErrNoDocuments
	}
	h.AmbulanceIDs = append(h.AmbulanceIDs, ambulanceID)
	return nil
}

func (r *fakeHospitalRepo) PullAmbulance(ctx context.Context, hospitalID, ambulanceID primitive.ObjectID) error {
	h, ok := r.hospitals[hospitalID]
	if !ok {
		return mongo.ErrNoDocuments
	}
	out := h.AmbulanceIDs[:0]
	for _, id := range h.AmbulanceIDs {
		if id != ambulanceID {
			out = append(out, id)
		}
	}
	h.AmbulanceIDs = out
	return nil
}

func (r *fakeHospitalRepo) AddAdministrator(ctx context.Context, hospitalID, userID primitive.ObjectID) error {
	h, ok := r.hospitals[hospitalID]
	if !ok {
		return mongo.ErrNoDocuments
	}
	h.AdministratorIDs = append(h.AdministratorIDs, userID)
	return nil
}

func (r *fakeHospitalRepo) RemoveAdministrator(ctx context.Context, hospitalID, userID primitive.ObjectID) error {
	h, ok := r.hospitals[hospitalID]
	if !ok {
		return mongo.ErrNoDocuments
	}
	out := h.AdministratorIDs[:0]
	for _, id := range h.AdministratorIDs {
		if id != userID {
			out = append(out, id)
		}
	}
	h.AdministratorIDs = out
	return nil
}

func (r *fakeHospitalRepo) UpdateRating(ctx context.Context, id primitive.ObjectID, average float64, count int) error {
	return r.Update(ctx, id, map[string]interface{}{
		"rating.average": average,
		"rating.count":   count,
	})
}

// fakeUserRepo is an in-memory UserRepository.
type fakeUserRepo struct {
	users map[primitive.ObjectID]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[primitive.ObjectID]*models.User)}
}

func (r *fakeUserRepo) put(u *models.User) *models.User {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	r.users[u.ID] = u
	return u
}

func (r *fakeUserRepo) Create(ctx context.Context, u *models.User) error {
	u.ID = primitive.NewObjectID()
	r.users[u.ID] = u
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (r *fakeUserRepo) GetByEmailOrPhone(ctx context.Context, identifier string) (*models.User, error) {
	for _, u := range r.users {
		if u.Email == identifier || u.Phone == identifier {
			copied := *u
			return &copied, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (r *fakeUserRepo) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	u, ok := r.users[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	for key, value := range updates {
		switch key {
		case "role":
			u.Role = value.(models.UserRole)
		case "password":
			u.Password = value.(string)
		case "administered_hospital_ids":
			u.AdministeredHospitalIDs = value.([]primitive.ObjectID)
		}
	}
	return nil
}

func (r *fakeUserRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) List(ctx context.Context, filter bson.M, params *utils.PaginationParams) ([]*models.User, int64, error) {
	var out []*models.User
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, int64(len(out)), nil
}

func (r *fakeUserRepo) ExistsByEmailOrPhone(ctx context.Context, email, phone string) (bool, error) {
	for _, u := range r.users {
		if u.Email == email || u.Phone == phone {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeUserRepo) AddAdministeredHospital(ctx context.Context, userID, hospitalID primitive.ObjectID) error {
	u, ok := r.users[userID]
	if !ok {
		return mongo.ErrNoDocuments
	}
	u.AdministeredHospitalIDs = append(u.AdministeredHospitalIDs, hospitalID)
	return nil
}

func (r *fakeUserRepo) PullAdministeredHospital(ctx context.Context, hospitalID primitive.ObjectID) error {
	for _, u := range r.users {
		out := u.AdministeredHospitalIDs[:0]
		for _, id := range u.AdministeredHospitalIDs {
			if id != hospitalID {
				out = append(out, id)
			}
		}
		u.AdministeredHospitalIDs = out
	}
	return nil
}

func (r *fakeUserRepo) DemoteOrphanedHospitalAdmins(ctx context.Context) (int64, error) {
	var demoted int64
	for _, u := range r.users {
		if u.Role == models.RoleHospitalAdmin && len(u.AdministeredHospitalIDs) == 0 {
			u.Role = models.RoleUser
			demoted++
		}
	}
	return demoted, nil
}

// fakePaymentRepo is an in-memory PaymentRepository.
type fakePaymentRepo struct {
	payments map[primitive.ObjectID]*models.Payment
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: make(map[primitive.ObjectID]*models.Payment)}
}

func (r *fakePaymentRepo) put(p *models.Payment) *models.Payment {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	r.payments[p.ID] = p
	return p
}

func (r *fakePaymentRepo) Create(ctx context.Context, p *models.Payment) error {
	p.ID = primitive.NewObjectID()
	p.CreatedAt = time.Now()
	r.payments[p.ID] = p
	return nil
}

func (r *fakePaymentRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Payment, error) {
	p, ok := r.payments[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	copied := *p
	return &copied, nil
}

func (r *fakePaymentRepo) GetByEmergency(ctx context.Context, emergencyID primitive.ObjectID) (*models.Payment, error) {
	for _, p := range r.payments {
		if p.EmergencyID == emergencyID {
			copied := *p
			return &copied, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (r *fakePaymentRepo) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	p, ok := r.payments[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	for key, value := range updates {
		switch key {
		case "status":
			p.Status = value.(models.PaymentStatus)
		case "transaction_id":
			p.TransactionID = value.(string)
		case "processed_at":
			p.ProcessedAt = value.(*time.Time)
		case "refund":
			p.Refund = value.(*models.Refund)
		case "failure_reason":
			p.FailureReason = value.(string)
		}
	}
	p.UpdatedAt = time.Now()
	return nil
}

func (r *fakePaymentRepo) List(ctx context.Context, filter bson.M, params *utils.PaginationParams) ([]*models.Payment, int64, error) {
	var out []*models.Payment
	for _, p := range r.payments {
		out = append(out, p)
	}
	return out, int64(len(out)), nil
}

// fakeMapsProvider serves canned answers for route and place lookups.
type fakeMapsProvider struct {
	directions    *maps.DirectionsResponse
	directionsErr error
	places        *maps.PlaceSearchResponse
	placesErr     error
	searchCalls   int
}

func (p *fakeMapsProvider) GetDirections(ctx context.Context, request *maps.DirectionsRequest) (*maps.DirectionsResponse, error) {
	if p.directionsErr != nil {
		return nil, p.directionsErr
	}
	if p.directions != nil {
		return p.directions, nil
	}
	return &maps.DirectionsResponse{Routes: []maps.Route{{
		Summary:  "Main St",
		Distance: maps.Distance{Value: 4200},
		Duration: maps.Duration{Value: 600},
		Polyline: "abc123",
	}}}, nil
}

func (p *fakeMapsProvider) SearchPlaces(ctx context.Context, request *maps.PlaceSearchRequest) (*maps.PlaceSearchResponse, error) {
	p.searchCalls++
	if p.placesErr != nil {
		return nil, p.placesErr
	}
	if p.places != nil {
		return p.places, nil
	}
	return &maps.PlaceSearchResponse{}, nil
}

func (p *fakeMapsProvider) ReverseGeocode(ctx context.Context, lat, lng float64) (*maps.GeocodeResponse, error) {
	return &maps.GeocodeResponse{}, nil
}

// fakeNotificationService records notification calls.
type fakeNotificationService struct {
	notified   []string
	recipients []primitive.ObjectID
}

func (s *fakeNotificationService) NotifyEmergencyEvent(ctx context.Context, recipient *models.User, emergencyID primitive.ObjectID, body string) {
	s.notified = append(s.notified, body)
	if recipient != nil {
		s.recipients = append(s.recipients, recipient.ID)
	}
}

func (s *fakeNotificationService) notifiedUser(id primitive.ObjectID) bool {
	for _, r := range s.recipients {
		if r == id {
			return true
		}
	}
	return false
}

func (s *fakeNotificationService) GetEmergencyMessages(ctx context.Context, emergencyID primitive.ObjectID) ([]*models.Message, error) {
	return nil, nil
}

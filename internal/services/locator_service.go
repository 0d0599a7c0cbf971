package services

import (
	"context"
	"strings"

	"ambudispatch/internal/apperr"
	"ambudispatch/internal/repositories/interfaces"
	"ambudispatch/internal/utils"
	"ambudispatch/pkg/logger"
	"ambudispatch/pkg/maps"

	"github.com/sony/gobreaker"
)

// LocatorService answers "what hospitals are near this point". Registered
// hospitals come first; when they don't fill the requested limit the external
// places provider tops the list up. A provider failure degrades the answer,
// it never fails the call.
type LocatorService interface {
	FindNearbyHospitals(ctx context.Context, lat, lng, radiusKM float64, limit int) ([]*HospitalResult, []string, error)
}

// HospitalResult is a unified row over internal and external hospitals.
type HospitalResult struct {
	ID        string   `json:"id,omitempty"`
	PlaceID   string   `json:"place_id,omitempty"`
	Name      string   `json:"name"`
	Address   string   `json:"address,omitempty"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Rating    float64  `json:"rating,omitempty"`
	Source    string   `json:"source"` // registered or external
	Available *int     `json:"available_beds,omitempty"`
	Phone     string   `json:"phone,omitempty"`
	Distance  float64  `json:"distance_km"`
	Tags      []string `json:"tags,omitempty"`
}

const (
	SourceRegistered = "registered"
	SourceExternal   = "external"
)

type locatorService struct {
	hospitalRepo interfaces.HospitalRepository
	mapsProvider maps.Provider
	mapsBreaker  *gobreaker.CircuitBreaker
	logger       *logger.Logger
}

func NewLocatorService(
	hospitalRepo interfaces.HospitalRepository,
	mapsProvider maps.Provider,
	mapsBreaker *gobreaker.CircuitBreaker,
	logger *logger.Logger,
) LocatorService {
	return &locatorService{
		hospitalRepo: hospitalRepo,
		mapsProvider: mapsProvider,
		mapsBreaker:  mapsBreaker,
		logger:       logger,
	}
}

func (s *locatorService) FindNearbyHospitals(ctx context.Context, lat, lng, radiusKM float64, limit int) ([]*HospitalResult, []string, error) {
	if !utils.IsValidCoordinates(lat, lng) {
		return nil, nil, apperr.Validation("invalid coordinates")
	}
	if radiusKM <= 0 || radiusKM > utils.MaxSearchRadiusKM {
		radiusKM = utils.DefaultSearchRadiusKM
	}
	if limit <= 0 || limit > utils.MaxNearestLimit {
		limit = utils.DefaultNearestLimit
	}

	origin := utils.Point{Lat: lat, Lng: lng}

	hospitals, err := s.hospitalRepo.GetNearby(ctx, lat, lng, radiusKM, limit)
	if err != nil {
		return nil, nil, err
	}

	results := make([]*HospitalResult, 0, limit)
	seen := make(map[string]bool)
	for _, hospital := range hospitals {
		available := hospital.Capacity.Available
		results = append(results, &HospitalResult{
			ID:        hospital.ID.Hex(),
			Name:      hospital.Name,
			Address:   hospital.Location.Address,
			Latitude:  hospital.Location.Latitude(),
			Longitude: hospital.Location.Longitude(),
			Rating:    hospital.Rating.Average,
			Source:    SourceRegistered,
			Available: &available,
			Phone:     hospital.Phone,
			Distance: utils.HaversineDistance(origin, utils.Point{
				Lat: hospital.Location.Latitude(),
				Lng: hospital.Location.Longitude(),
			}),
			Tags: hospital.Specialties,
		})
		seen[strings.ToLower(strings.TrimSpace(hospital.Name))] = true
	}

	var warnings []string

	if len(results) < limit && s.mapsProvider != nil {
		external, warning := s.searchExternal(ctx, lat, lng, radiusKM)
		if warning != "" {
			warnings = append(warnings, warning)
		}
		for _, place := range external {
			if len(results) >= limit {
				break
			}
			key := strings.ToLower(strings.TrimSpace(place.Name))
			if seen[key] {
				continue
			}
			seen[key] = true
			results = append(results, &HospitalResult{
				PlaceID:   place.PlaceID,
				Name:      place.Name,
				Address:   place.Address,
				Latitude:  place.Location.Latitude,
				Longitude: place.Location.Longitude,
				Rating:    place.Rating,
				Source:    SourceExternal,
				Distance: utils.HaversineDistance(origin, utils.Point{
					Lat: place.Location.Latitude,
					Lng: place.Location.Longitude,
				}),
				Tags: place.Types,
			})
		}
	}

	if len(results) > limit {
		results = results[:limit]
	}

	return results, warnings, nil
}

func (s *locatorService) searchExternal(ctx context.Context, lat, lng, radiusKM float64) ([]maps.PlaceResult, string) {
	result, err := s.mapsBreaker.Execute(func() (interface{}, error) {
		return s.mapsProvider.SearchPlaces(ctx, &maps.PlaceSearchRequest{
			Query:    "hospital",
			Location: maps.Location{Latitude: lat, Longitude: lng},
			Radius:   int(radiusKM * 1000),
			Type:     "hospital",
		})
	})
	if err != nil {
		s.logger.LogBestEffortFailure("external_hospital_search", err, map[string]interface{}{
			"lat": lat,
			"lng": lng,
		})
		return nil, "external hospital search unavailable"
	}

	response, ok := result.(*maps.PlaceSearchResponse)
	if !ok {
		return nil, "external hospital search unavailable"
	}

	return response.Results, ""
}


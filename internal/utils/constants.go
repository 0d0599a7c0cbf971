package utils

import "time"

// Application Constants
const (
	AppName    = "AmbuDispatch"
	AppVersion = "1.0.0"

	// Pagination
	DefaultPageSize = 20
	MaxPageSize     = 100
	MinPageSize     = 1

	// Authentication
	JWTAccessTokenTTL  = 24 * time.Hour
	JWTRefreshTokenTTL = 7 * 24 * time.Hour
	PasswordMinLength  = 8

	// Dispatch
	DefaultSearchRadiusKM = 10.0
	MaxSearchRadiusKM     = 50.0
	DefaultNearestLimit   = 5
	MaxNearestLimit       = 25
	LocationStaleAfter    = 10 * time.Minute

	// Feedback
	MinFeedbackRating = 1
	MaxFeedbackRating = 5

	// External providers
	ProviderCallTimeout = 10 * time.Second
)

// HTTP Status Messages
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Error Messages
const (
	ErrInvalidCredentials = "invalid credentials"
	ErrUserExists         = "user with this email or phone already exists"
	ErrInvalidToken       = "invalid token"
	ErrInvalidInput       = "invalid input"
	ErrInternalServer     = "internal server error"
	ErrUnauthorized       = "unauthorized"
	ErrForbidden          = "forbidden"
	ErrValidationFailed   = "validation failed"
)

// Cache Keys
const (
	CacheKeyEmergency         = "emergency:%s"
	CacheKeyAmbulanceLocation = "ambulance_location:%s"
	CacheKeyAmbulanceGeoSet   = "ambulance_geo"
	CacheTTLEmergency         = 5 * time.Minute
	CacheTTLAmbulanceLocation = 2 * time.Minute
)

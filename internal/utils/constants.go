package utils

import "time"

// Application Constants
const (
	AppName    = "abride"
	AppVersion = "1.0.0"

	// Default values
	DefaultLanguage    = "fr"
	DefaultCurrency    = "DZD"
	DefaultCountryCode = "+213"
	DefaultTimeZone    = "Africa/Algiers"

	// Pagination
	DefaultPageSize = 20
	MaxPageSize     = 100
	MinPageSize     = 1

	// Trip Constants
	MaxSeatsPerTrip       = 8
	MaxSeatsPerBooking    = 4
	TripDeletionWindow    = 24 * time.Hour
	TripDeletionLimit     = 3
	DefaultActionCooldown = 2 * time.Second

	// Reconciliation
	DashboardReconcileInterval = 5 * time.Second
	ListingReconcileInterval   = 30 * time.Second

	// Rate Limiting
	DefaultRateLimit = 100

	// Response statuses
	StatusSuccess = "success"
	StatusError   = "error"
)

// Common error messages
const (
	ErrValidationFailed = "Validation failed"
	ErrInternalServer   = "Internal server error"
	ErrUnauthorized     = "Unauthorized access"
	ErrForbidden        = "Access forbidden"
)

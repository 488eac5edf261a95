package validators

import (
	"abride/internal/models"
	"abride/internal/services"
)

// ValidateCreateTrip runs the struct tags plus the route rules the tags
// cannot express: the ksar requirement for Ghardaïa and distinct
// endpoints. The service re-checks these; this layer exists to hand the
// caller field-level messages.
func ValidateCreateTrip(req *services.CreateTripRequest) ValidationErrors {
	errs := ValidateStruct(req)

	if req.FromWilaya == req.ToWilaya && req.FromKsar == req.ToKsar {
		errs = append(errs, ValidationError{
			Field:   "to_wilaya",
			Tag:     "route",
			Message: "Departure and destination must differ",
		})
	}
	if req.FromWilaya == models.WilayaGhardaia && !models.IsValidKsar(req.FromKsar) {
		errs = append(errs, ValidationError{
			Field:   "from_ksar",
			Tag:     "ksar",
			Message: "A valid ksar is required for a Ghardaïa departure",
		})
	}
	if req.ToWilaya == models.WilayaGhardaia && !models.IsValidKsar(req.ToKsar) {
		errs = append(errs, ValidationError{
			Field:   "to_ksar",
			Tag:     "ksar",
			Message: "A valid ksar is required for a Ghardaïa destination",
		})
	}

	return errs
}

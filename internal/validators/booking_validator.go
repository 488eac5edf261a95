package validators

import (
	"abride/internal/services"
	"abride/internal/utils"
)

func ValidateCreateBooking(req *services.CreateBookingRequest) ValidationErrors {
	errs := ValidateStruct(req)

	if req.Seats > utils.MaxSeatsPerBooking {
		errs = append(errs, ValidationError{
			Field:   "seats",
			Tag:     "max",
			Message: "Too many seats for one booking",
		})
	}

	return errs
}

package booking

import (
	"math"
	"time"

	"github.com/stayhub/service-rental/internal/common/domain"
)

const day = 24 * time.Hour

// ValidateRange rejects a check-out before the check-in. A same-day stay is allowed.
func ValidateRange(checkIn, checkOut time.Time) error {
	if checkIn.IsZero() || checkOut.IsZero() {
		return domain.NewValidationError("check_in and check_out are required")
	}
	if checkIn.After(checkOut) {
		return domain.NewValidationError("check-out must not be before check-in")
	}
	return nil
}

// Nights counts the billable nights of a stay: whole days rounded up, plus one.
// A same-day stay is one night.
func Nights(checkIn, checkOut time.Time) int {
	diff := checkOut.Sub(checkIn)
	if diff < 0 {
		diff = 0
	}
	return int(math.Ceil(float64(diff)/float64(day))) + 1
}

// TotalPrice returns the stay price in major currency units.
func TotalPrice(nights int, pricePerNight float64) float64 {
	return float64(nights) * pricePerNight
}

// ToMinorUnits converts a major-unit amount to the integral minor units the gateway expects.
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

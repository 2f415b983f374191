package rating

import "strings"

// Rating thresholds shared across carriers. Carrier-specific percentages
// live in the carrier catalog; these shape when they apply.
const (
	youngDriverAge   = 25
	seniorDriverAge  = 70
	experiencedYears = 3
	lowMileageCap    = 7500
	highMileageFloor = 15000

	// minAnnualPremium is the floor applied before rounding.
	minAnnualPremium = 300

	// maxTotalDiscount caps the combined discount percentage. Surcharges
	// are never capped.
	maxTotalDiscount = 50
)

// ageFactor returns the age-band multiplier. Teen drivers rate triple,
// the 50s rate cheapest, and risk climbs back up past retirement age.
func ageFactor(age int) float64 {
	switch {
	case age < 18:
		return 3.00
	case age < 20:
		return 2.50
	case age < 22:
		return 2.00
	case age < 25:
		return 1.60
	case age < 30:
		return 1.15
	case age < 40:
		return 1.00
	case age < 50:
		return 0.95
	case age < 60:
		return 0.92
	case age < 65:
		return 0.95
	case age < 70:
		return 1.00
	case age < 75:
		return 1.10
	default:
		return 1.25
	}
}

// vehicleYearFactor returns the depreciation multiplier for a vehicle of
// the given age in years. New vehicles cost the most to insure and the
// factor decays to 0.75 past fifteen years.
func vehicleYearFactor(years int) float64 {
	switch {
	case years <= 0:
		return 1.50
	case years <= 1:
		return 1.40
	case years <= 2:
		return 1.30
	case years <= 3:
		return 1.20
	case years <= 5:
		return 1.10
	case years <= 8:
		return 1.00
	case years <= 10:
		return 0.90
	case years <= 15:
		return 0.82
	default:
		return 0.75
	}
}

// makeFactors maps lowercase vehicle makes to their risk multiplier.
// Luxury and performance marques rate up, high-volume economy makes rate
// down, anything unlisted rates at 1.0.
var makeFactors = map[string]float64{
	"ferrari":       1.60,
	"lamborghini":   1.60,
	"aston martin":  1.55,
	"maserati":      1.50,
	"porsche":       1.45,
	"jaguar":        1.35,
	"alfa romeo":    1.35,
	"tesla":         1.30,
	"land rover":    1.30,
	"bmw":           1.25,
	"mercedes":      1.25,
	"mercedes-benz": 1.25,
	"audi":          1.22,
	"cadillac":      1.20,
	"lexus":         1.18,
	"infiniti":      1.18,

	"honda":      0.90,
	"toyota":     0.90,
	"hyundai":    0.92,
	"kia":        0.92,
	"nissan":     0.93,
	"mazda":      0.93,
	"subaru":     0.95,
	"volkswagen": 0.95,
	"ford":       0.95,
	"chevrolet":  0.95,
}

// makeFactor returns the multiplier for a vehicle make, case-insensitive.
func makeFactor(name string) float64 {
	if f, ok := makeFactors[strings.ToLower(name)]; ok {
		return f
	}
	return 1.0
}

// deductibleDiscount returns the extra discount percentage a deductible
// tier earns. Only the listed tiers contribute; the $250 minimum earns
// nothing.
func deductibleDiscount(deductible int) float64 {
	switch deductible {
	case 500:
		return 8
	case 1000:
		return 15
	case 2000:
		return 22
	default:
		return 0
	}
}

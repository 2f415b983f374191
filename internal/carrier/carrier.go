package carrier

import (
	"github.com/rotisserie/eris"

	"github.com/quotelane/exchange-cli/internal/model"
)

// Discount factor names. Every carrier publishes a percentage for each;
// which ones apply to a given profile is decided at rating time.
const (
	DiscountMultiPolicy    = "multi_policy"
	DiscountMultiCar       = "multi_car"
	DiscountHomeOwner      = "homeowner"
	DiscountMarried        = "married"
	DiscountGoodStudent    = "good_student"
	DiscountSafeDriver     = "safe_driver"
	DiscountGoodCredit     = "good_credit"
	DiscountLowMileage     = "low_mileage"
	DiscountAntiTheft      = "anti_theft"
	DiscountSafetyFeatures = "safety_features"
	DiscountMilitary       = "military"
	DiscountLoyalty        = "loyalty"
	DiscountPaperless      = "paperless"
	DiscountPayInFull      = "pay_in_full"
)

// Surcharge factor names.
const (
	SurchargeYoungDriver      = "young_driver"
	SurchargeSeniorDriver     = "senior_driver"
	SurchargePoorCredit       = "poor_credit"
	SurchargeNoPriorInsurance = "no_prior_insurance"
	SurchargeInexperienced    = "inexperienced"
	SurchargeMinorViolation   = "minor_violation"
	SurchargeMajorViolation   = "major_violation"
	SurchargeAccident         = "at_fault_accident"
	SurchargeDUI              = "dui"
	SurchargeHighMileage      = "high_mileage"
	SurchargeSR22             = "sr22"
)

// Exclusivity tags. An empty tag means the carrier quotes everyone.
const (
	ExclusiveMilitary = "military"
	ExclusiveDirect   = "direct"
)

// labels maps factor names to the human-readable form shown on quotes.
var labels = map[string]string{
	DiscountMultiPolicy:    "Multi-policy",
	DiscountMultiCar:       "Multi-car",
	DiscountHomeOwner:      "Homeowner",
	DiscountMarried:        "Married",
	DiscountGoodStudent:    "Good student",
	DiscountSafeDriver:     "Safe driver",
	DiscountGoodCredit:     "Good credit",
	DiscountLowMileage:     "Low mileage",
	DiscountAntiTheft:      "Anti-theft device",
	DiscountSafetyFeatures: "Safety features",
	DiscountMilitary:       "Military",
	DiscountLoyalty:        "Loyalty",
	DiscountPaperless:      "Paperless billing",
	DiscountPayInFull:      "Pay in full",

	SurchargeYoungDriver:      "Young driver",
	SurchargeSeniorDriver:     "Senior driver",
	SurchargePoorCredit:       "Poor credit",
	SurchargeNoPriorInsurance: "No prior insurance",
	SurchargeInexperienced:    "Inexperienced driver",
	SurchargeMinorViolation:   "Minor violation",
	SurchargeMajorViolation:   "Major violation",
	SurchargeAccident:         "At-fault accident",
	SurchargeDUI:              "DUI",
	SurchargeHighMileage:      "High mileage",
	SurchargeSR22:             "SR-22 filing",
}

// Label returns the display label for a factor name, falling back to the
// raw name for factors added in config files.
func Label(name string) string {
	if l, ok := labels[name]; ok {
		return l
	}
	return name
}

// Config describes a single carrier's published rate table. Discount and
// surcharge values are percentage points of the adjusted base premium.
type Config struct {
	ID        string  `yaml:"id" json:"id"`
	Name      string  `yaml:"name" json:"name"`
	AvgRating float64 `yaml:"avg_rating" json:"avg_rating"`
	Available bool    `yaml:"available" json:"available"`

	// Exclusive restricts who the carrier quotes, e.g. military members
	// only. Empty means no restriction.
	Exclusive string `yaml:"exclusive,omitempty" json:"exclusive,omitempty"`

	BaseRates  map[model.CoverageType]float64 `yaml:"base_rates" json:"base_rates"`
	Discounts  map[string]float64             `yaml:"discounts" json:"discounts"`
	Surcharges map[string]float64             `yaml:"surcharges" json:"surcharges"`

	// StateMultipliers scale the base premium per customer state. States
	// not listed rate at 1.0.
	StateMultipliers map[string]float64 `yaml:"state_multipliers,omitempty" json:"state_multipliers,omitempty"`
}

// EligibleFor reports whether the carrier quotes a customer with the given
// occupation. Unavailable carriers are never eligible, and an exclusivity
// tag the customer does not satisfy filters the carrier out.
func (c *Config) EligibleFor(occupation string) bool {
	if !c.Available {
		return false
	}
	switch c.Exclusive {
	case "":
		return true
	case ExclusiveMilitary:
		return occupation == model.OccupationMilitary
	default:
		return false
	}
}

// BaseRate returns the annual base premium for a coverage tier.
func (c *Config) BaseRate(coverage model.CoverageType) (float64, bool) {
	rate, ok := c.BaseRates[coverage]
	return rate, ok
}

// StateMultiplier returns the multiplier for a customer state, defaulting
// to 1.0 for states without an entry.
func (c *Config) StateMultiplier(state string) float64 {
	if m, ok := c.StateMultipliers[state]; ok {
		return m
	}
	return 1.0
}

// Validate checks the carrier config for values that would corrupt rating.
func (c *Config) Validate() error {
	if c.ID == "" {
		return eris.New("carrier: id is required")
	}
	if c.Name == "" {
		return eris.Errorf("carrier %s: name is required", c.ID)
	}
	if c.AvgRating < 0 || c.AvgRating > 5 {
		return eris.Errorf("carrier %s: avg_rating %.2f outside [0, 5]", c.ID, c.AvgRating)
	}
	for _, tier := range []model.CoverageType{model.CoverageLiability, model.CoverageCollision, model.CoverageComprehensive, model.CoverageFull} {
		rate, ok := c.BaseRates[tier]
		if !ok {
			return eris.Errorf("carrier %s: missing base rate for %s", c.ID, tier)
		}
		if rate <= 0 {
			return eris.Errorf("carrier %s: base rate for %s must be positive", c.ID, tier)
		}
	}
	for name, pct := range c.Discounts {
		if pct < 0 || pct > 100 {
			return eris.Errorf("carrier %s: discount %s is %.1f%%, outside [0, 100]", c.ID, name, pct)
		}
	}
	for name, pct := range c.Surcharges {
		if pct < 0 {
			return eris.Errorf("carrier %s: surcharge %s must not be negative", c.ID, name)
		}
	}
	for state, m := range c.StateMultipliers {
		if m <= 0 {
			return eris.Errorf("carrier %s: state multiplier for %s must be positive", c.ID, state)
		}
	}
	return nil
}

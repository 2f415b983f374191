package model

// CoverageType selects which base-rate tier a carrier quotes from.
type CoverageType string

const (
	CoverageLiability     CoverageType = "liability"
	CoverageCollision     CoverageType = "collision"
	CoverageComprehensive CoverageType = "comprehensive"
	CoverageFull          CoverageType = "full"
)

// Valid reports whether c is one of the supported coverage tiers.
func (c CoverageType) Valid() bool {
	switch c {
	case CoverageLiability, CoverageCollision, CoverageComprehensive, CoverageFull:
		return true
	}
	return false
}

// CreditTier buckets the customer's self-reported credit standing.
type CreditTier string

const (
	CreditExcellent CreditTier = "excellent"
	CreditGood      CreditTier = "good"
	CreditFair      CreditTier = "fair"
	CreditPoor      CreditTier = "poor"
)

// DrivingHistory buckets the customer's worst recent driving incident.
type DrivingHistory string

const (
	HistoryClean          DrivingHistory = "clean"
	HistoryMinorViolation DrivingHistory = "minor_violation"
	HistoryMajorViolation DrivingHistory = "major_violation"
	HistoryAccidents      DrivingHistory = "accidents"
	HistoryDUI            DrivingHistory = "dui"
)

// OccupationMilitary unlocks carriers restricted to military members.
const OccupationMilitary = "military"

// RatingProfile is the customer intake snapshot a quote request is rated
// from. Unknown or omitted fields rate neutrally; they never fail a request.
type RatingProfile struct {
	// Driver.
	Age            int            `json:"age"`
	Gender         string         `json:"gender,omitempty"`
	MaritalStatus  string         `json:"marital_status,omitempty"`
	CreditScore    CreditTier     `json:"credit_score,omitempty"`
	HomeOwner      bool           `json:"home_owner,omitempty"`
	YearsLicensed  int            `json:"years_licensed,omitempty"`
	DrivingHistory DrivingHistory `json:"driving_history,omitempty"`
	PriorInsurance bool           `json:"prior_insurance,omitempty"`
	Occupation     string         `json:"occupation,omitempty"`
	AnnualMileage  int            `json:"annual_mileage,omitempty"`

	// Vehicle. VehicleModel is free text, e.g. "2021 Honda Accord".
	VehicleModel   string `json:"vehicle_model"`
	Ownership      string `json:"ownership,omitempty"`   // own, lease, finance
	PrimaryUse     string `json:"primary_use,omitempty"` // commute, pleasure, business
	GarageType     string `json:"garage_type,omitempty"` // garage, driveway, street
	AntiTheft      bool   `json:"anti_theft,omitempty"`
	SafetyFeatures bool   `json:"safety_features,omitempty"`

	// Coverage.
	CoverageType CoverageType `json:"coverage_type"`
	Deductible   int          `json:"deductible,omitempty"`
	State        string       `json:"state,omitempty"`
}

// Married reports whether the profile qualifies for married-driver discounts.
func (p *RatingProfile) Married() bool {
	return p.MaritalStatus == "married"
}

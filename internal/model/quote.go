package model

// Adjustment is a single applied discount or surcharge, carrying the
// human-readable label shown to the customer and its percentage.
type Adjustment struct {
	Label   string  `json:"label"`
	Percent float64 `json:"percent"`
}

// QuoteBreakdown exposes the intermediate rating figures behind a quote.
type QuoteBreakdown struct {
	BasePremium       float64 `json:"base_premium"`
	AgeFactor         float64 `json:"age_factor"`
	VehicleYearFactor float64 `json:"vehicle_year_factor"`
	VehicleMakeFactor float64 `json:"vehicle_make_factor"`
	StateFactor       float64 `json:"state_factor"`
	DiscountAmount    float64 `json:"discount_amount"`
	SurchargeAmount   float64 `json:"surcharge_amount"`
}

// Quote is one carrier's priced offer for a rating profile. Premiums are
// whole dollars; monthly and semiannual are derived from annual.
type Quote struct {
	CarrierID         string         `json:"carrier_id"`
	CarrierName       string         `json:"carrier_name"`
	CarrierRating     float64        `json:"carrier_rating"`
	AnnualPremium     int            `json:"annual_premium"`
	SemiannualPremium int            `json:"semiannual_premium"`
	MonthlyPremium    int            `json:"monthly_premium"`
	Discounts         []Adjustment   `json:"discounts,omitempty"`
	TotalDiscount     float64        `json:"total_discount"` // percentage points, capped at 50
	Surcharges        []Adjustment   `json:"surcharges,omitempty"`
	TotalSurcharge    float64        `json:"total_surcharge"` // percentage points, uncapped
	Breakdown         QuoteBreakdown `json:"breakdown"`
}

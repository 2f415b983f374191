package rating

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/quotelane/exchange-cli/internal/carrier"
	"github.com/quotelane/exchange-cli/internal/model"
)

// Engine rates customer profiles against a carrier catalog.
type Engine struct {
	catalog *carrier.Catalog
	now     func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the engine's wall clock. Vehicle age and the
// accepted model-year range derive from it.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New builds an engine over the given catalog.
func New(catalog *carrier.Catalog, opts ...Option) *Engine {
	e := &Engine{catalog: catalog, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Catalog returns the catalog the engine rates against.
func (e *Engine) Catalog() *carrier.Catalog {
	return e.catalog
}

// Eligible returns the carriers that will quote the given occupation.
func (e *Engine) Eligible(occupation string) []carrier.Config {
	return e.catalog.Eligible(occupation)
}

// Quote rates the profile against every eligible carrier. Results are
// sorted by monthly premium, cheapest first; ties keep catalog order.
func (e *Engine) Quote(p *model.RatingProfile) ([]model.Quote, error) {
	coverage, err := normalizeCoverage(p.CoverageType)
	if err != nil {
		return nil, err
	}
	vehicle := ParseVehicle(p.VehicleModel, e.now().Year()+1)

	eligible := e.catalog.Eligible(p.Occupation)
	quotes := make([]model.Quote, 0, len(eligible))
	for i := range eligible {
		q, ok := e.quoteCarrier(&eligible[i], p, coverage, vehicle)
		if !ok {
			continue
		}
		quotes = append(quotes, q)
	}

	sort.SliceStable(quotes, func(i, j int) bool {
		return quotes[i].MonthlyPremium < quotes[j].MonthlyPremium
	})
	return quotes, nil
}

// QuoteCarrier rates the profile against a single carrier by id.
func (e *Engine) QuoteCarrier(p *model.RatingProfile, carrierID string) (*model.Quote, error) {
	coverage, err := normalizeCoverage(p.CoverageType)
	if err != nil {
		return nil, err
	}
	c, ok := e.catalog.Get(carrierID)
	if !ok {
		return nil, eris.Errorf("rating: unknown carrier %s", carrierID)
	}
	if !c.EligibleFor(p.Occupation) {
		return nil, eris.Errorf("rating: carrier %s does not quote this profile", carrierID)
	}

	vehicle := ParseVehicle(p.VehicleModel, e.now().Year()+1)
	q, ok := e.quoteCarrier(c, p, coverage, vehicle)
	if !ok {
		return nil, eris.Errorf("rating: carrier %s has no %s rate", carrierID, coverage)
	}
	return &q, nil
}

// normalizeCoverage defaults an empty selection to full coverage, the
// quote form default, and rejects unknown values.
func normalizeCoverage(c model.CoverageType) (model.CoverageType, error) {
	if c == "" {
		return model.CoverageFull, nil
	}
	if !c.Valid() {
		return "", eris.Errorf("rating: unknown coverage type %q", c)
	}
	return c, nil
}

// quoteCarrier prices one carrier. The premium is the coverage base rate
// scaled by the age, vehicle year, vehicle make, and state multipliers,
// then adjusted by the triggered discounts and surcharges, floored at
// the minimum annual premium, and rounded to whole dollars.
func (e *Engine) quoteCarrier(c *carrier.Config, p *model.RatingProfile, coverage model.CoverageType, v Vehicle) (model.Quote, bool) {
	base, ok := c.BaseRate(coverage)
	if !ok {
		zap.L().Debug("carrier missing base rate",
			zap.String("carrier", c.ID),
			zap.String("coverage", string(coverage)))
		return model.Quote{}, false
	}

	// Missing profile fields rate neutrally.
	ageF := 1.0
	if p.Age > 0 {
		ageF = ageFactor(p.Age)
	}
	yearF := 1.0
	if v.Year > 0 {
		yearF = vehicleYearFactor(e.now().Year() - v.Year)
	}
	makeF := makeFactor(v.Make)
	stateF := c.StateMultiplier(p.State)

	raw := base * ageF * yearF * makeF * stateF

	discounts, discountPct := applyDiscounts(c, p)
	discountPct = math.Min(discountPct, maxTotalDiscount)
	surcharges, surchargePct := applySurcharges(c, p)

	discountAmt := raw * discountPct / 100
	surchargeAmt := raw * surchargePct / 100

	annual := int(math.Round(math.Max(raw-discountAmt+surchargeAmt, minAnnualPremium)))
	semiannual := int(math.Round(float64(annual) / 2))
	monthly := int(math.Round(float64(annual) / 12))

	return model.Quote{
		CarrierID:         c.ID,
		CarrierName:       c.Name,
		CarrierRating:     c.AvgRating,
		AnnualPremium:     annual,
		SemiannualPremium: semiannual,
		MonthlyPremium:    monthly,
		Discounts:         discounts,
		TotalDiscount:     discountPct,
		Surcharges:        surcharges,
		TotalSurcharge:    surchargePct,
		Breakdown: model.QuoteBreakdown{
			BasePremium:       base,
			AgeFactor:         ageF,
			VehicleYearFactor: yearF,
			VehicleMakeFactor: makeF,
			StateFactor:       stateF,
			DiscountAmount:    round2(discountAmt),
			SurchargeAmount:   round2(surchargeAmt),
		},
	}, true
}

// applyDiscounts evaluates the profile against the carrier's discount
// table in a fixed order so quote output is deterministic. The returned
// total is uncapped; the caller applies the cap.
func applyDiscounts(c *carrier.Config, p *model.RatingProfile) ([]model.Adjustment, float64) {
	var adjs []model.Adjustment
	var total float64

	add := func(name string, weight float64) {
		pct, ok := c.Discounts[name]
		if !ok || pct == 0 {
			return
		}
		pct *= weight
		adjs = append(adjs, model.Adjustment{Label: carrier.Label(name), Percent: math.Round(pct)})
		total += pct
	}

	if p.HomeOwner {
		add(carrier.DiscountHomeOwner, 1)
	}
	if p.Married() {
		add(carrier.DiscountMarried, 1)
	}
	if p.DrivingHistory == model.HistoryClean && p.YearsLicensed >= experiencedYears {
		add(carrier.DiscountSafeDriver, 1)
	}
	switch p.CreditScore {
	case model.CreditExcellent:
		add(carrier.DiscountGoodCredit, 1)
	case model.CreditGood:
		add(carrier.DiscountGoodCredit, 0.5)
	}
	if p.AnnualMileage > 0 && p.AnnualMileage < lowMileageCap {
		add(carrier.DiscountLowMileage, 1)
	}
	if p.AntiTheft {
		add(carrier.DiscountAntiTheft, 1)
	}
	if p.SafetyFeatures {
		add(carrier.DiscountSafetyFeatures, 1)
	}
	if p.Occupation == model.OccupationMilitary {
		add(carrier.DiscountMilitary, 1)
	}

	// Deductible tiers earn a fixed extra discount on top of the
	// carrier table.
	if dd := deductibleDiscount(p.Deductible); dd > 0 {
		adjs = append(adjs, model.Adjustment{
			Label:   fmt.Sprintf("$%d deductible", p.Deductible),
			Percent: dd,
		})
		total += dd
	}

	return adjs, total
}

// applySurcharges mirrors applyDiscounts for the surcharge table. The
// total is never capped.
func applySurcharges(c *carrier.Config, p *model.RatingProfile) ([]model.Adjustment, float64) {
	var adjs []model.Adjustment
	var total float64

	add := func(name string, weight float64) {
		pct, ok := c.Surcharges[name]
		if !ok || pct == 0 {
			return
		}
		pct *= weight
		adjs = append(adjs, model.Adjustment{Label: carrier.Label(name), Percent: math.Round(pct)})
		total += pct
	}

	if p.Age > 0 && p.Age < youngDriverAge {
		add(carrier.SurchargeYoungDriver, 1)
	}
	if p.Age > seniorDriverAge {
		add(carrier.SurchargeSeniorDriver, 1)
	}
	if p.YearsLicensed < experiencedYears {
		add(carrier.SurchargeInexperienced, 1)
	}
	switch p.DrivingHistory {
	case model.HistoryMinorViolation:
		add(carrier.SurchargeMinorViolation, 1)
	case model.HistoryMajorViolation:
		add(carrier.SurchargeMajorViolation, 1)
	case model.HistoryAccidents:
		add(carrier.SurchargeAccident, 1)
	case model.HistoryDUI:
		add(carrier.SurchargeDUI, 1)
	}
	switch p.CreditScore {
	case model.CreditPoor:
		add(carrier.SurchargePoorCredit, 1)
	case model.CreditFair:
		add(carrier.SurchargePoorCredit, 0.5)
	}
	if !p.PriorInsurance {
		add(carrier.SurchargeNoPriorInsurance, 1)
	}
	if p.AnnualMileage > highMileageFloor {
		add(carrier.SurchargeHighMileage, 1)
	}

	return adjs, total
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

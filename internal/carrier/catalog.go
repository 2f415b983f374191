package carrier

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/quotelane/exchange-cli/internal/model"
)

// Catalog is an ordered set of carrier configs. Catalog order is display
// order and breaks premium ties when quotes are sorted.
type Catalog struct {
	carriers []Config
	byID     map[string]int
}

// New builds a catalog preserving the given order. Call Validate before
// rating against configs from untrusted sources.
func New(carriers []Config) *Catalog {
	byID := make(map[string]int, len(carriers))
	for i, c := range carriers {
		byID[c.ID] = i
	}
	return &Catalog{carriers: carriers, byID: byID}
}

// Load reads a carrier catalog from a YAML file with a top-level
// "carriers" key and validates it.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "carrier: read catalog %s", path)
	}

	var wrapper struct {
		Carriers []Config `yaml:"carriers"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "carrier: parse catalog")
	}
	if len(wrapper.Carriers) == 0 {
		return nil, eris.Errorf("carrier: catalog %s defines no carriers", path)
	}

	cat := New(wrapper.Carriers)
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return cat, nil
}

// Carriers returns all carriers in catalog order.
func (c *Catalog) Carriers() []Config {
	return c.carriers
}

// Len returns the number of carriers in the catalog.
func (c *Catalog) Len() int {
	return len(c.carriers)
}

// Get returns the carrier with the given id.
func (c *Catalog) Get(id string) (*Config, bool) {
	i, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	return &c.carriers[i], true
}

// Eligible returns the carriers that will quote a customer with the given
// occupation, in catalog order.
func (c *Catalog) Eligible(occupation string) []Config {
	out := make([]Config, 0, len(c.carriers))
	for _, cf := range c.carriers {
		if cf.EligibleFor(occupation) {
			out = append(out, cf)
		}
	}
	return out
}

// Validate checks every carrier and rejects duplicate ids.
func (c *Catalog) Validate() error {
	seen := make(map[string]bool, len(c.carriers))
	for i := range c.carriers {
		cf := &c.carriers[i]
		if err := cf.Validate(); err != nil {
			return err
		}
		if seen[cf.ID] {
			return eris.Errorf("carrier: duplicate id %s", cf.ID)
		}
		seen[cf.ID] = true
	}
	return nil
}

// Default returns the built-in ten-carrier catalog. Rates are illustrative
// market figures, not filed rates.
func Default() *Catalog {
	return New(defaultCarriers)
}

var defaultCarriers = []Config{
	{
		ID:        "meridian",
		Name:      "Meridian Mutual",
		AvgRating: 4.7,
		Available: true,
		BaseRates: map[model.CoverageType]float64{
			model.CoverageLiability:     520,
			model.CoverageCollision:     780,
			model.CoverageComprehensive: 910,
			model.CoverageFull:          1240,
		},
		Discounts: map[string]float64{
			DiscountMultiPolicy: 12, DiscountMultiCar: 10, DiscountHomeOwner: 8,
			DiscountMarried: 5, DiscountGoodStudent: 8, DiscountSafeDriver: 15,
			DiscountGoodCredit: 12, DiscountLowMileage: 7, DiscountAntiTheft: 5,
			DiscountSafetyFeatures: 6, DiscountMilitary: 8, DiscountLoyalty: 5,
			DiscountPaperless: 2, DiscountPayInFull: 6,
		},
		Surcharges: map[string]float64{
			SurchargeYoungDriver: 28, SurchargeSeniorDriver: 12, SurchargePoorCredit: 18,
			SurchargeNoPriorInsurance: 12, SurchargeInexperienced: 10, SurchargeMinorViolation: 10,
			SurchargeMajorViolation: 25, SurchargeAccident: 22, SurchargeDUI: 45,
			SurchargeHighMileage: 8, SurchargeSR22: 20,
		},
		StateMultipliers: map[string]float64{
			"CA": 1.22, "NY": 1.28, "FL": 1.31, "TX": 1.12, "MI": 1.42,
			"IL": 1.08, "PA": 1.05, "OH": 0.94, "NC": 0.97, "WA": 1.10,
		},
	},
	{
		ID:        "blueoak",
		Name:      "BlueOak Insurance",
		AvgRating: 4.3,
		Available: true,
		BaseRates: map[model.CoverageType]float64{
			model.CoverageLiability:     455,
			model.CoverageCollision:     690,
			model.CoverageComprehensive: 815,
			model.CoverageFull:          1105,
		},
		Discounts: map[string]float64{
			DiscountMultiPolicy: 10, DiscountMultiCar: 8, DiscountHomeOwner: 6,
			DiscountMarried: 4, DiscountGoodStudent: 7, DiscountSafeDriver: 12,
			DiscountGoodCredit: 10, DiscountLowMileage: 6, DiscountAntiTheft: 4,
			DiscountSafetyFeatures: 5, DiscountMilitary: 6, DiscountLoyalty: 4,
			DiscountPaperless: 1, DiscountPayInFull: 5,
		},
		Surcharges: map[string]float64{
			SurchargeYoungDriver: 24, SurchargeSeniorDriver: 10, SurchargePoorCredit: 15,
			SurchargeNoPriorInsurance: 10, SurchargeInexperienced: 9, SurchargeMinorViolation: 9,
			SurchargeMajorViolation: 22, SurchargeAccident: 19, SurchargeDUI: 40,
			SurchargeHighMileage: 7, SurchargeSR22: 18,
		},
		StateMultipliers: map[string]float64{
			"CA": 1.18, "NY": 1.24, "FL": 1.27, "TX": 1.09, "MI": 1.36,
			"GA": 1.06, "AZ": 1.04, "OH": 0.95, "VT": 0.90, "WA": 1.07,
		},
	},
	{
		ID:        "cascadia",
		Name:      "Cascadia General",
		AvgRating: 4.1,
		Available: true,
		BaseRates: map[model.CoverageType]float64{
			model.CoverageLiability:     480,
			model.CoverageCollision:     720,
			model.CoverageComprehensive: 840,
			model.CoverageFull:          1150,
		},
		Discounts: map[string]float64{
			DiscountMultiPolicy: 11, DiscountMultiCar: 9, DiscountHomeOwner: 7,
			DiscountMarried: 4, DiscountGoodStudent: 6, DiscountSafeDriver: 14,
			DiscountGoodCredit: 9, DiscountLowMileage: 8, DiscountAntiTheft: 4,
			DiscountSafetyFeatures: 5, DiscountMilitary: 7, DiscountLoyalty: 4,
			DiscountPaperless: 2, DiscountPayInFull: 5,
		},
		Surcharges: map[string]float64{
			SurchargeYoungDriver: 26, SurchargeSeniorDriver: 11, SurchargePoorCredit: 16,
			SurchargeNoPriorInsurance: 11, SurchargeInexperienced: 9, SurchargeMinorViolation: 9,
			SurchargeMajorViolation: 23, SurchargeAccident: 20, SurchargeDUI: 42,
			SurchargeHighMileage: 7, SurchargeSR22: 19,
		},
		StateMultipliers: map[string]float64{
			"WA": 0.98, "OR": 0.96, "CA": 1.20, "ID": 0.92, "NV": 1.12,
			"NY": 1.26, "FL": 1.30, "TX": 1.10, "CO": 1.05, "MT": 0.93,
		},
	},
	{
		ID:        "pinnacle",
		Name:      "Pinnacle Auto",
		AvgRating: 4.5,
		Available: true,
		BaseRates: map[model.CoverageType]float64{
			model.CoverageLiability:     585,
			model.CoverageCollision:     860,
			model.CoverageComprehensive: 990,
			model.CoverageFull:          1370,
		},
		Discounts: map[string]float64{
			DiscountMultiPolicy: 14, DiscountMultiCar: 12, DiscountHomeOwner: 10,
			DiscountMarried: 6, DiscountGoodStudent: 9, DiscountSafeDriver: 18,
			DiscountGoodCredit: 14, DiscountLowMileage: 8, DiscountAntiTheft: 6,
			DiscountSafetyFeatures: 7, DiscountMilitary: 9, DiscountLoyalty: 6,
			DiscountPaperless: 3, DiscountPayInFull: 8,
		},
		Surcharges: map[string]float64{
			SurchargeYoungDriver: 32, SurchargeSeniorDriver: 14, SurchargePoorCredit: 20,
			SurchargeNoPriorInsurance: 14, SurchargeInexperienced: 12, SurchargeMinorViolation: 12,
			SurchargeMajorViolation: 28, SurchargeAccident: 25, SurchargeDUI: 50,
			SurchargeHighMileage: 9, SurchargeSR22: 24,
		},
		StateMultipliers: map[string]float64{
			"CA": 1.25, "NY": 1.32, "FL": 1.35, "TX": 1.15, "NJ": 1.22,
			"MA": 1.18, "MI": 1.45, "OH": 0.93, "IN": 0.95, "IL": 1.10,
		},
	},
	{
		ID:        "harborpoint",
		Name:      "HarborPoint Casualty",
		AvgRating: 3.9,
		Available: true,
		BaseRates: map[model.CoverageType]float64{
			model.CoverageLiability:     440,
			model.CoverageCollision:     665,
			model.CoverageComprehensive: 790,
			model.CoverageFull:          1080,
		},
		Discounts: map[string]float64{
			DiscountMultiPolicy: 9, DiscountMultiCar: 7, DiscountHomeOwner: 5,
			DiscountMarried: 3, DiscountGoodStudent: 6, DiscountSafeDriver: 11,
			DiscountGoodCredit: 8, DiscountLowMileage: 5, DiscountAntiTheft: 3,
			DiscountSafetyFeatures: 4, DiscountMilitary: 5, DiscountLoyalty: 3,
			DiscountPaperless: 1, DiscountPayInFull: 4,
		},
		Surcharges: map[string]float64{
			SurchargeYoungDriver: 22, SurchargeSeniorDriver: 9, SurchargePoorCredit: 14,
			SurchargeNoPriorInsurance: 9, SurchargeInexperienced: 8, SurchargeMinorViolation: 8,
			SurchargeMajorViolation: 20, SurchargeAccident: 17, SurchargeDUI: 38,
			SurchargeHighMileage: 6, SurchargeSR22: 16,
		},
		StateMultipliers: map[string]float64{
			"CA": 1.15, "NY": 1.20, "FL": 1.24, "TX": 1.08, "LA": 1.28,
			"MS": 1.10, "AL": 1.05, "OH": 0.96, "ME": 0.90, "WI": 0.94,
		},
	},
	{
		ID:        "sentinel",
		Name:      "Sentinel Armed Forces Mutual",
		AvgRating: 4.9,
		Available: true,
		Exclusive: ExclusiveMilitary,
		BaseRates: map[model.CoverageType]float64{
			model.CoverageLiability:     410,
			model.CoverageCollision:     630,
			model.CoverageComprehensive: 750,
			model.CoverageFull:          1020,
		},
		Discounts: map[string]float64{
			DiscountMultiPolicy: 12, DiscountMultiCar: 10, DiscountHomeOwner: 9,
			DiscountMarried: 6, DiscountGoodStudent: 8, DiscountSafeDriver: 16,
			DiscountGoodCredit: 12, DiscountLowMileage: 7, DiscountAntiTheft: 5,
			DiscountSafetyFeatures: 6, DiscountMilitary: 15, DiscountLoyalty: 7,
			DiscountPaperless: 2, DiscountPayInFull: 7,
		},
		Surcharges: map[string]float64{
			SurchargeYoungDriver: 20, SurchargeSeniorDriver: 8, SurchargePoorCredit: 12,
			SurchargeNoPriorInsurance: 8, SurchargeInexperienced: 7, SurchargeMinorViolation: 8,
			SurchargeMajorViolation: 18, SurchargeAccident: 15, SurchargeDUI: 35,
			SurchargeHighMileage: 5, SurchargeSR22: 14,
		},
		StateMultipliers: map[string]float64{
			"CA": 1.12, "VA": 1.02, "TX": 1.05, "NC": 0.98, "FL": 1.18,
			"HI": 1.08, "WA": 1.04, "GA": 1.03, "CO": 1.02, "KY": 0.95,
		},
	},
	{
		ID:        "redrock",
		Name:      "RedRock Indemnity",
		AvgRating: 4.0,
		Available: true,
		BaseRates: map[model.CoverageType]float64{
			model.CoverageLiability:     505,
			model.CoverageCollision:     755,
			model.CoverageComprehensive: 880,
			model.CoverageFull:          1210,
		},
		Discounts: map[string]float64{
			DiscountMultiPolicy: 10, DiscountMultiCar: 9, DiscountHomeOwner: 7,
			DiscountMarried: 5, DiscountGoodStudent: 7, DiscountSafeDriver: 13,
			DiscountGoodCredit: 10, DiscountLowMileage: 6, DiscountAntiTheft: 4,
			DiscountSafetyFeatures: 5, DiscountMilitary: 7, DiscountLoyalty: 5,
			DiscountPaperless: 2, DiscountPayInFull: 6,
		},
		Surcharges: map[string]float64{
			SurchargeYoungDriver: 27, SurchargeSeniorDriver: 12, SurchargePoorCredit: 17,
			SurchargeNoPriorInsurance: 12, SurchargeInexperienced: 10, SurchargeMinorViolation: 10,
			SurchargeMajorViolation: 24, SurchargeAccident: 21, SurchargeDUI: 44,
			SurchargeHighMileage: 8, SurchargeSR22: 21,
		},
		StateMultipliers: map[string]float64{
			"UT": 0.94, "AZ": 1.06, "NV": 1.14, "NM": 1.02, "CO": 1.07,
			"CA": 1.21, "TX": 1.11, "OK": 1.04, "KS": 0.96, "NY": 1.27,
		},
	},
	{
		ID:        "lakeshore",
		Name:      "Lakeshore National",
		AvgRating: 4.4,
		Available: true,
		BaseRates: map[model.CoverageType]float64{
			model.CoverageLiability:     530,
			model.CoverageCollision:     795,
			model.CoverageComprehensive: 920,
			model.CoverageFull:          1265,
		},
		Discounts: map[string]float64{
			DiscountMultiPolicy: 13, DiscountMultiCar: 11, DiscountHomeOwner: 9,
			DiscountMarried: 5, DiscountGoodStudent: 8, DiscountSafeDriver: 16,
			DiscountGoodCredit: 13, DiscountLowMileage: 7, DiscountAntiTheft: 5,
			DiscountSafetyFeatures: 6, DiscountMilitary: 8, DiscountLoyalty: 6,
			DiscountPaperless: 2, DiscountPayInFull: 7,
		},
		Surcharges: map[string]float64{
			SurchargeYoungDriver: 29, SurchargeSeniorDriver: 13, SurchargePoorCredit: 19,
			SurchargeNoPriorInsurance: 13, SurchargeInexperienced: 11, SurchargeMinorViolation: 11,
			SurchargeMajorViolation: 26, SurchargeAccident: 23, SurchargeDUI: 47,
			SurchargeHighMileage: 8, SurchargeSR22: 22,
		},
		StateMultipliers: map[string]float64{
			"MI": 1.38, "IL": 1.12, "WI": 0.97, "MN": 0.99, "OH": 0.95,
			"IN": 0.96, "NY": 1.29, "PA": 1.06, "CA": 1.23, "FL": 1.32,
		},
	},
	{
		ID:        "summit",
		Name:      "Summit Standard",
		AvgRating: 4.2,
		Available: true,
		BaseRates: map[model.CoverageType]float64{
			model.CoverageLiability:     495,
			model.CoverageCollision:     745,
			model.CoverageComprehensive: 870,
			model.CoverageFull:          1190,
		},
		Discounts: map[string]float64{
			DiscountMultiPolicy: 11, DiscountMultiCar: 9, DiscountHomeOwner: 8,
			DiscountMarried: 5, DiscountGoodStudent: 7, DiscountSafeDriver: 14,
			DiscountGoodCredit: 11, DiscountLowMileage: 6, DiscountAntiTheft: 4,
			DiscountSafetyFeatures: 5, DiscountMilitary: 7, DiscountLoyalty: 5,
			DiscountPaperless: 2, DiscountPayInFull: 6,
		},
		Surcharges: map[string]float64{
			SurchargeYoungDriver: 26, SurchargeSeniorDriver: 11, SurchargePoorCredit: 17,
			SurchargeNoPriorInsurance: 11, SurchargeInexperienced: 10, SurchargeMinorViolation: 10,
			SurchargeMajorViolation: 24, SurchargeAccident: 21, SurchargeDUI: 43,
			SurchargeHighMileage: 7, SurchargeSR22: 20,
		},
		StateMultipliers: map[string]float64{
			"CO": 1.04, "WY": 0.91, "MT": 0.92, "UT": 0.95, "ID": 0.93,
			"CA": 1.19, "WA": 1.06, "OR": 1.00, "NV": 1.10, "AZ": 1.05,
		},
	},
	{
		ID:        "fairfield",
		Name:      "Fairfield Assurance",
		AvgRating: 3.8,
		Available: true,
		BaseRates: map[model.CoverageType]float64{
			model.CoverageLiability:     465,
			model.CoverageCollision:     700,
			model.CoverageComprehensive: 825,
			model.CoverageFull:          1125,
		},
		Discounts: map[string]float64{
			DiscountMultiPolicy: 9, DiscountMultiCar: 8, DiscountHomeOwner: 6,
			DiscountMarried: 4, DiscountGoodStudent: 6, DiscountSafeDriver: 12,
			DiscountGoodCredit: 9, DiscountLowMileage: 5, DiscountAntiTheft: 3,
			DiscountSafetyFeatures: 4, DiscountMilitary: 6, DiscountLoyalty: 4,
			DiscountPaperless: 1, DiscountPayInFull: 5,
		},
		Surcharges: map[string]float64{
			SurchargeYoungDriver: 23, SurchargeSeniorDriver: 10, SurchargePoorCredit: 15,
			SurchargeNoPriorInsurance: 10, SurchargeInexperienced: 9, SurchargeMinorViolation: 9,
			SurchargeMajorViolation: 21, SurchargeAccident: 18, SurchargeDUI: 39,
			SurchargeHighMileage: 6, SurchargeSR22: 17,
		},
		StateMultipliers: map[string]float64{
			"CT": 1.14, "MA": 1.16, "RI": 1.12, "NH": 0.93, "VT": 0.91,
			"NY": 1.25, "NJ": 1.19, "PA": 1.04, "CA": 1.17, "FL": 1.26,
		},
	},
}

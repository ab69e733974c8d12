package contracts

// CountryIdentity is the canonical identity of a country
// ⭐ SSOT: 모든 조인은 ISO3 로만 수행
type CountryIdentity struct {
	Name      string `json:"name"`
	ISO3      string `json:"iso3"`
	Continent string `json:"continent"`
	Region    string `json:"region"`
}

// CountryStats is the static per-country record used by the forecasting model
type CountryStats struct {
	Name   string `json:"name"`
	ISO3   string `json:"iso3"`
	Region string `json:"region"`

	// nil when the population source has no row for the country
	Population *int64 `json:"population"`

	// Log-transformed covariates
	LogUrbanPopulation       float64 `json:"log_urban_pop"`
	LogHealthExpenditure     float64 `json:"log_health_exp"`
	LogHospitalBeds          float64 `json:"log_hospital_beds"`
	LogPopulationDensity     float64 `json:"log_pop_density"`
	LogPopulationOver65      float64 `json:"log_pop_over_65"`
	LogInternationalArrivals float64 `json:"log_arrivals"`
	LogPhysicians            float64 `json:"log_physicians"`

	NRows int `json:"nrows"`
}

// HasPopulation reports whether the record carries a usable population
func (s CountryStats) HasPopulation() bool {
	return s.Population != nil && *s.Population > 0
}

// RegionStats is a population rollup over the members of one region
type RegionStats struct {
	Name       string   `json:"name"`
	Population int64    `json:"population"`
	Countries  []string `json:"countries"` // iso3 of the members counted in Population
}

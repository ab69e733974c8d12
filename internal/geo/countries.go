package geo

import "github.com/wonny/africa-covid/backend/internal/contracts"

// Continents and regions used by the registry
const (
	Africa       = "Africa"
	Asia         = "Asia"
	Europe       = "Europe"
	NorthAmerica = "North America"
	SouthAmerica = "South America"
	Oceania      = "Oceania"

	NorthernAfrica = "Northern Africa"
	EasternAfrica  = "Eastern Africa"
	MiddleAfrica   = "Middle Africa"
	SouthernAfrica = "Southern Africa"
	WesternAfrica  = "Western Africa"
)

func africa(region, iso3, name string) contracts.CountryIdentity {
	return contracts.CountryIdentity{Name: name, ISO3: iso3, Continent: Africa, Region: region}
}

// defaultCountries is every African country by UN M49 sub-region plus the
// reference countries the global sources are most likely to contain.
var defaultCountries = []contracts.CountryIdentity{
	// Northern Africa
	africa(NorthernAfrica, "DZA", "Algeria"),
	africa(NorthernAfrica, "EGY", "Egypt"),
	africa(NorthernAfrica, "LBY", "Libya"),
	africa(NorthernAfrica, "MAR", "Morocco"),
	africa(NorthernAfrica, "SDN", "Sudan"),
	africa(NorthernAfrica, "TUN", "Tunisia"),
	africa(NorthernAfrica, "ESH", "Western Sahara"),

	// Eastern Africa
	africa(EasternAfrica, "BDI", "Burundi"),
	africa(EasternAfrica, "COM", "Comoros"),
	africa(EasternAfrica, "DJI", "Djibouti"),
	africa(EasternAfrica, "ERI", "Eritrea"),
	africa(EasternAfrica, "ETH", "Ethiopia"),
	africa(EasternAfrica, "KEN", "Kenya"),
	africa(EasternAfrica, "MDG", "Madagascar"),
	africa(EasternAfrica, "MWI", "Malawi"),
	africa(EasternAfrica, "MUS", "Mauritius"),
	africa(EasternAfrica, "MOZ", "Mozambique"),
	africa(EasternAfrica, "RWA", "Rwanda"),
	africa(EasternAfrica, "SYC", "Seychelles"),
	africa(EasternAfrica, "SOM", "Somalia"),
	africa(EasternAfrica, "SSD", "South Sudan"),
	africa(EasternAfrica, "TZA", "Tanzania"),
	africa(EasternAfrica, "UGA", "Uganda"),
	africa(EasternAfrica, "ZMB", "Zambia"),
	africa(EasternAfrica, "ZWE", "Zimbabwe"),

	// Middle Africa
	africa(MiddleAfrica, "AGO", "Angola"),
	africa(MiddleAfrica, "CMR", "Cameroon"),
	africa(MiddleAfrica, "CAF", "Central African Republic"),
	africa(MiddleAfrica, "TCD", "Chad"),
	africa(MiddleAfrica, "COG", "Republic of the Congo"),
	africa(MiddleAfrica, "COD", "Democratic Republic of the Congo"),
	africa(MiddleAfrica, "GNQ", "Equatorial Guinea"),
	africa(MiddleAfrica, "GAB", "Gabon"),
	africa(MiddleAfrica, "STP", "São Tomé and Príncipe"),

	// Southern Africa
	africa(SouthernAfrica, "BWA", "Botswana"),
	africa(SouthernAfrica, "SWZ", "Eswatini"),
	africa(SouthernAfrica, "LSO", "Lesotho"),
	africa(SouthernAfrica, "NAM", "Namibia"),
	africa(SouthernAfrica, "ZAF", "South Africa"),

	// Western Africa
	africa(WesternAfrica, "BEN", "Benin"),
	africa(WesternAfrica, "BFA", "Burkina Faso"),
	africa(WesternAfrica, "CPV", "Cabo Verde"),
	africa(WesternAfrica, "CIV", "Côte d'Ivoire"),
	africa(WesternAfrica, "GMB", "Gambia"),
	africa(WesternAfrica, "GHA", "Ghana"),
	africa(WesternAfrica, "GIN", "Guinea"),
	africa(WesternAfrica, "GNB", "Guinea-Bissau"),
	africa(WesternAfrica, "LBR", "Liberia"),
	africa(WesternAfrica, "MLI", "Mali"),
	africa(WesternAfrica, "MRT", "Mauritania"),
	africa(WesternAfrica, "NER", "Niger"),
	africa(WesternAfrica, "NGA", "Nigeria"),
	africa(WesternAfrica, "SEN", "Senegal"),
	africa(WesternAfrica, "SLE", "Sierra Leone"),
	africa(WesternAfrica, "TGO", "Togo"),

	// Reference countries outside Africa
	{Name: "United States", ISO3: "USA", Continent: NorthAmerica, Region: "Northern America"},
	{Name: "Canada", ISO3: "CAN", Continent: NorthAmerica, Region: "Northern America"},
	{Name: "Brazil", ISO3: "BRA", Continent: SouthAmerica, Region: "South America"},
	{Name: "United Kingdom", ISO3: "GBR", Continent: Europe, Region: "Northern Europe"},
	{Name: "France", ISO3: "FRA", Continent: Europe, Region: "Western Europe"},
	{Name: "Germany", ISO3: "DEU", Continent: Europe, Region: "Western Europe"},
	{Name: "Italy", ISO3: "ITA", Continent: Europe, Region: "Southern Europe"},
	{Name: "Spain", ISO3: "ESP", Continent: Europe, Region: "Southern Europe"},
	{Name: "Russia", ISO3: "RUS", Continent: Europe, Region: "Eastern Europe"},
	{Name: "China", ISO3: "CHN", Continent: Asia, Region: "Eastern Asia"},
	{Name: "Japan", ISO3: "JPN", Continent: Asia, Region: "Eastern Asia"},
	{Name: "South Korea", ISO3: "KOR", Continent: Asia, Region: "Eastern Asia"},
	{Name: "India", ISO3: "IND", Continent: Asia, Region: "Southern Asia"},
	{Name: "Myanmar", ISO3: "MMR", Continent: Asia, Region: "South-eastern Asia"},
	{Name: "Australia", ISO3: "AUS", Continent: Oceania, Region: "Australia and New Zealand"},
}

// defaultOverrides maps source spellings (exact match) to registry names
var defaultOverrides = map[string]string{
	// JHU CSSE
	"US":                    "United States",
	"Congo":                 "Democratic Republic of the Congo",
	"Congo (Kinshasa)":      "Democratic Republic of the Congo",
	"Congo (Brazzaville)":   "Republic of the Congo",
	"Cote d'Ivoire":         "Côte d'Ivoire",
	"Ivory Coast":           "Côte d'Ivoire",
	"Swaziland":             "Eswatini",
	"Gambia, The":           "Gambia",
	"The Gambia":            "Gambia",
	"Cape Verde":            "Cabo Verde",
	"Sao Tome and Principe": "São Tomé and Príncipe",
	"Korea, South":          "South Korea",
	"Burma":                 "Myanmar",

	// World Bank
	"Congo, Dem. Rep.":              "Democratic Republic of the Congo",
	"Congo, Rep.":                   "Republic of the Congo",
	"Egypt, Arab Rep.":              "Egypt",
	"Russian Federation":            "Russia",
	"Korea, Rep.":                   "South Korea",
	"United Republic of Tanzania":   "Tanzania",
	"Libyan Arab Jamahiriya":        "Libya",
	"Eswatini (Swaziland)":          "Eswatini",
	"Republic of Congo":             "Republic of the Congo",
	"Dem. Rep. Congo":               "Democratic Republic of the Congo",
	"Central African Rep.":          "Central African Republic",
	"Western Sahara (Sahrawi)":      "Western Sahara",
	"Sudan (former)":                "Sudan",
	"Tanzania, United Republic of":  "Tanzania",
	"Congo, Democratic Republic of": "Democratic Republic of the Congo",
	"United States of America":      "United States",
}

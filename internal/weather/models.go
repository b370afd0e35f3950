package weather

// Language selects the description language requested from the provider.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageGerman  Language = "de"
)

// Location identifies the place the station shows weather for.
// City is passed to the provider verbatim.
type Location struct {
	City string   `json:"city"`
	Lang Language `json:"lang"`
}

// Record is the subset of a current-weather response the station displays.
// It is replaced wholesale on every successful fetch.
type Record struct {
	City         string  `json:"name"`
	Description  string  `json:"description"`
	IconCode     string  `json:"icon"`
	TemperatureC float64 `json:"temp"`
	HumidityPct  int     `json:"humidity"`
	WindSpeedMS  float64 `json:"wind_speed"`
}

// IconPrefix returns the first two characters of an icon code, which
// identify the condition regardless of day or night.
func IconPrefix(code string) string {
	if len(code) < 2 {
		return code
	}
	return code[:2]
}

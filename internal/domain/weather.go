package domain

// ForecastRequest asks a provider for a daily forecast at a coordinate.
type ForecastRequest struct {
	Lat  float64
	Lon  float64
	Days int
}

// ForecastLocation echoes the requested coordinate and the provider timezone.
type ForecastLocation struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Timezone string  `json:"timezone,omitempty"`
}

// ForecastDay holds normalized metric values for one day.
type ForecastDay struct {
	Date        string   `json:"date"` // ISO date in provider timezone
	TempMaxC    *float64 `json:"tempMaxC"`
	TempMinC    *float64 `json:"tempMinC"`
	WindMaxMS   *float64 `json:"windMaxMS,omitempty"`
	WindDirDeg  *float64 `json:"windDirDeg,omitempty"`
	PrecipProb  *float64 `json:"precipProb,omitempty"` // 0-100
	WeatherCode *int     `json:"weatherCode,omitempty"`
}

// Forecast is the provider-independent forecast returned by /api/weather.
type Forecast struct {
	Source    string           `json:"source"`
	FetchedAt string           `json:"fetchedAt"`
	Location  ForecastLocation `json:"location"`
	Days      []ForecastDay    `json:"days"`
}

// CToF converts Celsius to Fahrenheit.
func CToF(c float64) float64 { return c*9/5 + 32 }

// MSToMph converts metres per second to miles per hour.
func MSToMph(ms float64) float64 { return ms * 2.236936 }

// MSToKmh converts metres per second to kilometres per hour.
func MSToKmh(ms float64) float64 { return ms * 3.6 }

package fetch

import "time"

// Normalized payload shapes produced by the provider adapters. The
// cache and orchestrator treat payloads as opaque JSON; these types are
// the contract between adapters and API consumers.

// TidePayload describes the tide state derived from a height series.
type TidePayload struct {
	State           string    `json:"tideState"` // rising or falling
	Magnitude       string    `json:"magnitude"` // SPRING, NEAP or NORMAL
	MagnitudeFactor float64   `json:"magnitudeFactor"`
	RangeM          float64   `json:"rangeM"`
	Heights         []float64 `json:"heights,omitempty"`
	Description     string    `json:"description"`
}

// MarineInterval is one forecast step of wind and wave conditions.
type MarineInterval struct {
	Time   time.Time `json:"time"`
	WindKt float64   `json:"windKt"`
	WaveM  float64   `json:"waveM"`
}

// MarinePayload is a point wind/wave forecast over the requested range.
type MarinePayload struct {
	Location  string           `json:"location"`
	Intervals []MarineInterval `json:"intervals"`
	MaxWindKt float64          `json:"maxWindKt"`
	MaxWaveM  float64          `json:"maxWaveM"`
}

// RiseSet holds rise and set times as local HH:MM strings.
type RiseSet struct {
	Rise string `json:"rise"`
	Set  string `json:"set"`
}

// BiteWindow is one bite period, local HH:MM start and end.
type BiteWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// BiteDay holds the bite windows and sun/moon times for one day.
type BiteDay struct {
	Day        string       `json:"day"` // e.g. "Thu 19 Feb"
	MajorBites []BiteWindow `json:"majorBites"`
	MinorBites []BiteWindow `json:"minorBites"`
	Sun        *RiseSet     `json:"sun,omitempty"`
	Moon       *RiseSet     `json:"moon,omitempty"`
	Note       string       `json:"note,omitempty"`
}

// BiteTimesPayload is the multi-day bite time calendar for a location.
type BiteTimesPayload struct {
	Location string    `json:"location"`
	Days     []BiteDay `json:"days"`
}

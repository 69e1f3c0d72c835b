package location

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kelvins/geocoder"
)

// ErrUnknown is returned when a query matches no curated spot and no
// geocoder is configured (or geocoding fails).
var ErrUnknown = errors.New("location: unknown location")

// Place is a resolved fishing location.
type Place struct {
	Name string
	Lat  float64
	Lon  float64
}

type coords struct {
	lat, lon float64
}

// Curated Cook Strait fishing spots and hazards. Names are matched
// case-insensitively, with substring matching for partial queries.
var knownSpots = map[string]coords{
	// Wellington / North Island side
	"mana marina": {-41.10108, 174.86700},
	"mana":        {-41.1141, 174.8512},
	"plimmerton":  {-41.0821, 174.8615},
	"pukerua bay": {-41.0312, 174.8945},
	"titahi bay":  {-41.1023, 174.8312},
	"makara":      {-41.2245, 174.7123},
	"karori rock": {-41.3482, 174.6523},
	"terawhiti":   {-41.2912, 174.6154},
	"sinclair head": {-41.3610, 174.7670},
	"barrett reef":  {-41.3520, 174.8350},

	// Cook Strait centre / hazards
	"cook strait":     {-41.2000, 174.5500},
	"fishermans rock": {-41.0672, 174.6015},
	"hunter bank":     {-40.9671, 174.8172},
	"awash rock":      {-41.1415, 174.3750},
	"cook rock":       {-41.0330, 174.4670},

	// Marlborough Sounds / South Island side
	"tory channel":     {-41.2145, 174.3212},
	"cape koamaru":     {-41.0883, 174.3814},
	"brothers islands": {-41.1020, 174.4410},
	"ship cove":        {-41.0950, 174.2420},
	"motuara island":   {-41.0500, 174.2700},
	"perano head":      {-41.1830, 174.3160},
}

// Resolver maps free-form location queries to coordinates: curated
// spots first, then geocoding when an API key is configured.
type Resolver struct {
	geocoderKey string
}

func NewResolver(geocoderAPIKey string) *Resolver {
	return &Resolver{geocoderKey: geocoderAPIKey}
}

// Resolve returns the place for a query. The Sounds entrance shorthand
// used by locals ("tory", "koamaru", "the eastern entrance") resolves
// to the corresponding entrance.
func (r *Resolver) Resolve(query string) (Place, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return Place{}, ErrUnknown
	}

	// Entrance shorthand beats everything else so follow-up answers
	// like "tory" or "cape koamaru" land on the right entrance.
	if hasAny(q, "tory", "eastern entrance", "east entrance") {
		c := knownSpots["tory channel"]
		return Place{Name: "Tory Channel (Eastern Entrance)", Lat: c.lat, Lon: c.lon}, nil
	}
	if hasAny(q, "koamaru", "northern entrance", "north entrance") {
		c := knownSpots["cape koamaru"]
		return Place{Name: "Cape Koamaru (Northern Entrance)", Lat: c.lat, Lon: c.lon}, nil
	}

	if c, ok := knownSpots[q]; ok {
		return Place{Name: title(q), Lat: c.lat, Lon: c.lon}, nil
	}

	// Partial matches, e.g. "off plimmerton" or "pukerua".
	for name, c := range knownSpots {
		if strings.Contains(q, name) || strings.Contains(name, q) {
			return Place{Name: title(name), Lat: c.lat, Lon: c.lon}, nil
		}
	}

	if r.geocoderKey != "" {
		return r.geocode(query)
	}

	return Place{}, fmt.Errorf("%w: %q", ErrUnknown, query)
}

func (r *Resolver) geocode(query string) (Place, error) {
	geocoder.ApiKey = r.geocoderKey

	loc, err := geocoder.Geocoding(geocoder.Address{
		City:    query,
		Country: "New Zealand",
	})
	if err != nil {
		return Place{}, fmt.Errorf("%w: %q: %v", ErrUnknown, query, err)
	}

	return Place{Name: title(query), Lat: loc.Latitude, Lon: loc.Longitude}, nil
}

// hasAny returns true if s contains any of the substrings.
func hasAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func title(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sony/gobreaker"

	"github.com/straitnav/marinefetch/internal/fetch"
)

// Bite time pages mark each day with an h5 header like "Thu 19 Feb",
// followed by major/minor bite windows and sun/moon rise/set lines.
// Both bitetimes.fishing and fishing.net.nz follow this shape.
var (
	dayHeaderRe = regexp.MustCompile(`^(Mon|Tue|Wed|Thu|Fri|Sat|Sun)\s+\d{1,2}\s+(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)`)
	majorBiteRe = regexp.MustCompile(`(?s)Major Bite.*?(\d{1,2}:\d{2})\s*-\s*(\d{1,2}:\d{2})`)
	minorBiteRe = regexp.MustCompile(`(?s)Minor Bite.*?(\d{1,2}:\d{2})\s*-\s*(\d{1,2}:\d{2})`)
	sunRe       = regexp.MustCompile(`(?s)Rise:\s*(\d{2}:\d{2}).*?Set:\s*(\d{2}:\d{2})`)
	moonRe      = regexp.MustCompile(`(?s)Moon\s+Rise:\s*(\d{2}:\d{2}).*?Set:\s*(\d{2}:\d{2})`)
	spaceRe     = regexp.MustCompile(`\s+`)
)

// BiteTimesProvider scrapes a bite time calendar page. Two instances
// are configured: bitetimes.fishing as primary and fishing.net.nz as
// fallback, since either site intermittently blocks automated access.
type BiteTimesProvider struct {
	name    string
	pageURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewBiteTimesProvider(client *http.Client, name, pageURL string) *BiteTimesProvider {
	return &BiteTimesProvider{
		name:    name,
		pageURL: pageURL,
		httpCfg: defaultHTTPConfig(client),
		circuit: newCircuit(name),
	}
}

func (p *BiteTimesProvider) ID() string {
	return p.name
}

func (p *BiteTimesProvider) Fetch(ctx context.Context, req fetch.Request) (json.RawMessage, error) {
	buildRequest := func() (*http.Request, error) {
		httpReq, err := http.NewRequest(http.MethodGet, p.pageURL, nil)
		if err != nil {
			return nil, err
		}
		// Browser-like headers; these pages reject bare clients.
		httpReq.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
		httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		httpReq.Header.Set("Accept-Language", "en-US,en;q=0.5")
		return httpReq, nil
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, errMalformed
	}

	payload := fetch.BiteTimesPayload{Location: req.Location}

	doc.Find("h5").Each(func(_ int, sel *goquery.Selection) {
		day := trimmedText(sel)
		if !dayHeaderRe.MatchString(day) {
			return
		}
		if req.Days > 0 && len(payload.Days) >= req.Days {
			return
		}

		section := sel.Parent().Text()
		entry := fetch.BiteDay{
			Day:        day,
			MajorBites: parseBiteWindows(majorBiteRe, section),
			MinorBites: parseBiteWindows(minorBiteRe, section),
		}

		if m := sunRe.FindStringSubmatch(section); m != nil {
			entry.Sun = &fetch.RiseSet{Rise: m[1], Set: m[2]}
		}
		if m := moonRe.FindStringSubmatch(section); m != nil {
			entry.Moon = &fetch.RiseSet{Rise: m[1], Set: m[2]}
		}

		payload.Days = append(payload.Days, entry)
	})

	if len(payload.Days) == 0 {
		return nil, errMalformed
	}

	return json.Marshal(payload)
}

// parseBiteWindows extracts up to two bite windows; the calendars list
// at most two major and two minor bites per day.
func parseBiteWindows(re *regexp.Regexp, text string) []fetch.BiteWindow {
	var windows []fetch.BiteWindow
	for _, m := range re.FindAllStringSubmatch(text, 2) {
		windows = append(windows, fetch.BiteWindow{Start: m[1], End: m[2]})
	}
	return windows
}

func trimmedText(sel *goquery.Selection) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(sel.Text(), " "))
}

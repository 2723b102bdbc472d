package analytics

import (
	"strings"

	"github.com/pariz/gountries"

	"folio/internal/pkg/geoip"
)

// Geolocation headers injected by the edge platforms folio deploys behind.
// Tried in order; first non-empty value wins.
var (
	countryHeaders = []string{"CF-IPCountry", "X-Vercel-IP-Country"}
	cityHeaders    = []string{"CF-IPCity", "X-Vercel-IP-City"}
)

var countryQuery = gountries.New()

// ResolveGeo determines country and city for a request. It trusts the
// edge-injected headers first, falls back to a GeoLite lookup of the client
// IP for the country, and returns "Unknown" for anything unresolvable.
// headers is a case-insensitive getter over the request headers.
func ResolveGeo(headers func(string) string, clientIP string) (country, city string) {
	code := ""
	for _, h := range countryHeaders {
		if v := headers(h); v != "" {
			code = v
			break
		}
	}
	if code == "" {
		code = geoip.CountryCode(clientIP)
	}
	country = countryName(code)

	for _, h := range cityHeaders {
		if v := headers(h); v != "" {
			city = v
			break
		}
	}
	if city == "" {
		city = UnknownGeo
	}
	return country, city
}

// countryName expands an ISO alpha-2 code to its common name. Unknown or
// placeholder codes ("XX", "T1") map to "Unknown".
func countryName(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || code == "XX" || code == "T1" {
		return UnknownGeo
	}
	c, err := countryQuery.FindCountryByAlpha(code)
	if err != nil {
		return UnknownGeo
	}
	return c.Name.Common
}

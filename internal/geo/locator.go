package geo

import "net/http"

// Location is the geo fix attached to a request. All fields may be empty;
// the core pipeline never resolves geography itself.
type Location struct {
	Country string
	Region  string
	City    string
}

// Locator is the boundary to the external GeoIP collaborator.
type Locator interface {
	Locate(r *http.Request) Location
}

// Noop always returns an empty location. It is the core-layer default.
type Noop struct{}

func (Noop) Locate(*http.Request) Location { return Location{} }

// EdgeHeaders reads the geo headers an edge proxy (e.g. Cloudflare) injects
// ahead of this service.
type EdgeHeaders struct{}

func (EdgeHeaders) Locate(r *http.Request) Location {
	return Location{
		Country: r.Header.Get("CF-IPCountry"),
		Region:  r.Header.Get("CF-Region"),
		City:    r.Header.Get("CF-IPCity"),
	}
}

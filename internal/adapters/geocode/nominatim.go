package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/basobaas/plotline/internal/core/domain"
)

// Nominatim implements ports.Geocoder against the Nominatim reverse endpoint.
// Callers bound each lookup with a context deadline; the embedded client
// timeout is a backstop only.
type Nominatim struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

// NewNominatim creates a Nominatim geocoder. Nominatim's usage policy
// requires an identifying User-Agent, so userAgent must be non-empty.
func NewNominatim(baseURL, userAgent string, timeout time.Duration) *Nominatim {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Nominatim{
		baseURL:   baseURL,
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

type reverseResponse struct {
	Address struct {
		City     string `json:"city"`
		Town     string `json:"town"`
		Village  string `json:"village"`
		State    string `json:"state"`
		Postcode string `json:"postcode"`
	} `json:"address"`
}

// Reverse resolves a point to a city/state/postal-code triple.
func (n *Nominatim) Reverse(ctx context.Context, p domain.GeoPoint) (domain.Address, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(p.Lat, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(p.Lon, 'f', 6, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		n.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return domain.Address{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return domain.Address{}, fmt.Errorf("reverse geocode: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Address{}, fmt.Errorf("reverse geocode: status %d", resp.StatusCode)
	}

	var body reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.Address{}, fmt.Errorf("decode response: %w", err)
	}

	// Nominatim reports the locality under different keys by place size.
	city := body.Address.City
	if city == "" {
		city = body.Address.Town
	}
	if city == "" {
		city = body.Address.Village
	}

	return domain.Address{
		City:       city,
		State:      body.Address.State,
		PostalCode: body.Address.Postcode,
	}, nil
}

package optimizer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"field-route-service/internal/domain"
	"field-route-service/internal/platform/obs"
	"field-route-service/internal/ports"
)

var _ ports.Geocoder = (*Client)(nil)

const defaultGeocodeFailure = "Failed to geocode addresses"

type geocodeRequest struct {
	Addresses []string `json:"addresses"`
}

type geocodeResult struct {
	Address string   `json:"address"`
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
	Success bool     `json:"success"`
}

type geocodeResponse struct {
	Success     *bool           `json:"success" validate:"required"`
	Coordinates []geocodeResult `json:"coordinates"`
	Error       string          `json:"error"`
}

// Geocode resolves addresses through {base}/api/geocode in one request.
// The result is aligned with addresses; entries the service could not
// resolve are domain.NoCoordinate().
func (c *Client) Geocode(ctx context.Context, addresses []string) (_ []domain.Coordinate, err error) {
	defer obs.Time(ctx, "optimizer.Geocode")(&err)

	if len(addresses) == 0 {
		return nil, &domain.ValidationError{Field: "addresses", Msg: "no addresses to geocode"}
	}
	for i, a := range addresses {
		if strings.TrimSpace(a) == "" {
			return nil, &domain.ValidationError{Field: "addresses", Msg: fmt.Sprintf("address at index %d is empty", i)}
		}
	}

	body, err := c.post(ctx, "/api/geocode", geocodeRequest{Addresses: addresses})
	if err != nil {
		return nil, &domain.GeocodeError{Kind: domain.KindTransport, Msg: "request failed", Err: err}
	}

	var decoded geocodeResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, &domain.GeocodeError{Kind: domain.KindMalformed, Msg: "decode response", Err: err}
	}
	if err := c.validate.Struct(decoded); err != nil {
		return nil, &domain.GeocodeError{Kind: domain.KindMalformed, Msg: "invalid response", Err: err}
	}
	if !*decoded.Success {
		msg := strings.TrimSpace(decoded.Error)
		if msg == "" {
			msg = defaultGeocodeFailure
		}
		return nil, &domain.GeocodeError{Kind: domain.KindService, Msg: msg}
	}
	if len(decoded.Coordinates) != len(addresses) {
		return nil, &domain.GeocodeError{
			Kind: domain.KindMalformed,
			Msg:  fmt.Sprintf("got %d coordinates for %d addresses", len(decoded.Coordinates), len(addresses)),
		}
	}

	out := make([]domain.Coordinate, len(addresses))
	for i, r := range decoded.Coordinates {
		out[i] = domain.NoCoordinate()
		if !r.Success || r.Lat == nil || r.Lng == nil {
			continue
		}
		if coord := (domain.Coordinate{Lat: *r.Lat, Lng: *r.Lng}); coord.Valid() {
			out[i] = coord
		}
	}

	return out, nil
}

package optimizer

import (
	"context"
	"encoding/json"
	"errors"
	"field-route-service/internal/domain"
	"net/http"
	"testing"
)

func TestGeocodeAlignsWithInput(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req geocodeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Addresses) != 2 {
			t.Errorf("request = %+v, err %v", req, err)
		}
		respond(`{"success": true, "coordinates": [
			{"address": "10 Elm St", "lat": 42.35, "lng": -71.07, "success": true},
			{"address": "nowhere", "success": false}
		]}`)(w, r)
	})

	got, err := c.Geocode(context.Background(), []string{"10 Elm St", "nowhere"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Lat != 42.35 || got[0].Lng != -71.07 {
		t.Fatalf("first = %+v", got[0])
	}
	if got[1].Valid() {
		t.Fatalf("expected unresolved address to be invalid, got %+v", got[1])
	}
}

func TestGeocodeFailures(t *testing.T) {
	cases := map[string]struct {
		body string
		kind domain.RemoteErrorKind
	}{
		"service":         {`{"success": false, "error": "quota"}`, domain.KindService},
		"missing success": {`{"coordinates": []}`, domain.KindMalformed},
		"length mismatch": {`{"success": true, "coordinates": []}`, domain.KindMalformed},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, respond(tc.body))
			_, err := c.Geocode(context.Background(), []string{"10 Elm St"})

			var ge *domain.GeocodeError
			if !errors.As(err, &ge) {
				t.Fatalf("err = %v, want *domain.GeocodeError", err)
			}
			if ge.Kind != tc.kind {
				t.Fatalf("kind = %s, want %s", ge.Kind, tc.kind)
			}
		})
	}
}

func TestGeocodeRejectsEmptyInput(t *testing.T) {
	c := newTestClient(t, respond(`{}`))

	_, err := c.Geocode(context.Background(), nil)
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want *domain.ValidationError", err)
	}
}

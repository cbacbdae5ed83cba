package geocode

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/sells-group/profile-cli/internal/model"
)

const googleGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

type googleGeocodeResponse struct {
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
			LocationType string `json:"location_type"`
		} `json:"geometry"`
		FormattedAddress string `json:"formatted_address"`
	} `json:"results"`
	Status string `json:"status"`
}

func (g *geocoder) geocodeGoogle(ctx context.Context, query string) Outcome {
	params := url.Values{
		"address": {query},
		"key":     {g.googleKey},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.googleURL+"?"+params.Encode(), nil)
	if err != nil {
		return transportFailure("google", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return transportFailure("google", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return statusFailure("google", resp.StatusCode)
	}

	var body googleGeocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Outcome{Failure: model.Fail(model.ErrNetwork, "google: decode response: "+err.Error())}
	}

	switch body.Status {
	case "OK":
	case "REQUEST_DENIED":
		return Outcome{Failure: model.Fail(model.ErrNoAPIKey, "google: request denied")}
	case "OVER_QUERY_LIMIT", "OVER_DAILY_LIMIT":
		return Outcome{Failure: model.Fail(model.ErrRateLimited, "google: "+strings.ToLower(body.Status))}
	default:
		return Outcome{}
	}
	if len(body.Results) == 0 {
		return Outcome{}
	}

	r := body.Results[0]
	return Outcome{
		Found:            true,
		Lat:              r.Geometry.Location.Lat,
		Lng:              r.Geometry.Location.Lng,
		Confidence:       googleConfidence(r.Geometry.LocationType),
		FormattedAddress: r.FormattedAddress,
		Source:           "google",
	}
}

// googleConfidence maps Google's location_type onto a 0..1 confidence.
func googleConfidence(locType string) float64 {
	switch strings.ToUpper(locType) {
	case "ROOFTOP":
		return 1.0
	case "RANGE_INTERPOLATED":
		return 0.8
	case "GEOMETRIC_CENTER":
		return 0.6
	default:
		return 0.4
	}
}

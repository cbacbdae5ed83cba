package geocode

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/sells-group/profile-cli/internal/model"
)

const mapboxGeocodeURL = "https://api.mapbox.com/geocoding/v5/mapbox.places"

type mapboxResponse struct {
	Features []struct {
		Center    []float64 `json:"center"` // [lng, lat]
		Relevance float64   `json:"relevance"`
		PlaceName string    `json:"place_name"`
	} `json:"features"`
}

func (g *geocoder) geocodeMapbox(ctx context.Context, query string) Outcome {
	params := url.Values{
		"access_token": {g.mapboxToken},
		"limit":        {"1"},
		"types":        {"address,place"},
	}
	reqURL := g.mapboxURL + "/" + url.PathEscape(query) + ".json?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return transportFailure("mapbox", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return transportFailure("mapbox", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return statusFailure("mapbox", resp.StatusCode)
	}

	var body mapboxResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Outcome{Failure: model.Fail(model.ErrNetwork, "mapbox: decode response: "+err.Error())}
	}
	if len(body.Features) == 0 || len(body.Features[0].Center) < 2 {
		return Outcome{}
	}

	f := body.Features[0]
	return Outcome{
		Found:            true,
		Lng:              f.Center[0],
		Lat:              f.Center[1],
		Confidence:       f.Relevance,
		FormattedAddress: f.PlaceName,
		Source:           "mapbox",
	}
}

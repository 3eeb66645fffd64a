package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// NominatimResolver geocodes through an OSM Nominatim-compatible endpoint.
type NominatimResolver struct {
	baseURL string
	client  *http.Client
}

func NewNominatimResolver(baseURL string) *NominatimResolver {
	return &NominatimResolver{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *NominatimResolver) Resolve(ctx context.Context, address string) (Coordinates, error) {
	endpoint := fmt.Sprintf("%s/search?format=json&limit=1&q=%s", r.baseURL, url.QueryEscape(address))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Coordinates{}, err
	}
	req.Header.Set("User-Agent", "food-marketplace-api/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return Coordinates{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Coordinates{}, fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}

	var results []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return Coordinates{}, err
	}
	if len(results) == 0 {
		return Coordinates{}, fmt.Errorf("no results for address")
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return Coordinates{}, err
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return Coordinates{}, err
	}
	return Coordinates{Lat: lat, Lon: lon}, nil
}

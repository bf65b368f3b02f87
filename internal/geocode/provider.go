package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"listing-discovery/internal/common/httpclient"
	"listing-discovery/internal/common/logger"
	"listing-discovery/internal/geo"
)

const (
	addressSearchPath = "/v2/local/search/address.json"
	keywordSearchPath = "/v2/local/search/keyword.json"
	reverseGeoPath    = "/v2/local/geo/coord2address.json"
)

// SortBy is the provider-side ranking for keyword searches.
type SortBy string

const (
	SortByDistance SortBy = "distance"
	SortByAccuracy SortBy = "accuracy"
)

// Region biases a keyword search toward an origin point. Limit caps the
// number of hits requested from, and accepted of, the provider.
type Region struct {
	Origin       geo.Coordinates
	RadiusMeters int
	SortBy       SortBy
	Limit        int
}

// Place is one ranked hit from the provider.
type Place struct {
	ID          string
	Name        string
	Address     string
	Category    string
	Coordinates geo.Coordinates
}

// Provider is the raw geocoding provider contract. All three calls
// return the provider's ranked order; an empty slice (or empty string)
// with a nil error means the provider answered with zero results.
type Provider interface {
	AddressSearch(ctx context.Context, query string) ([]Place, error)
	KeywordSearch(ctx context.Context, query string, region Region) ([]Place, error)
	ReverseGeocode(ctx context.Context, coords geo.Coordinates) (string, error)
}

// Client talks to a Kakao-Local-compatible REST API.
type Client struct {
	baseURL string
	apiKey  string
	http    *httpclient.Client
	logger  logger.Logger
}

func NewClient(baseURL, apiKey string, timeout time.Duration, log logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    httpclient.NewClient(timeout),
		logger:  log.WithFields(map[string]interface{}{"component": "geocode-client"}),
	}
}

// document mirrors the provider's wire format: coordinates arrive as
// decimal strings, x is longitude and y is latitude.
type document struct {
	ID           string `json:"id"`
	PlaceName    string `json:"place_name"`
	AddressName  string `json:"address_name"`
	RoadAddress  string `json:"road_address_name"`
	CategoryName string `json:"category_group_name"`
	X            string `json:"x"`
	Y            string `json:"y"`
}

type searchResponse struct {
	Documents []document `json:"documents"`
}

type reverseResponse struct {
	Documents []struct {
		Address struct {
			AddressName string `json:"address_name"`
		} `json:"address"`
		RoadAddress struct {
			AddressName string `json:"address_name"`
		} `json:"road_address"`
	} `json:"documents"`
}

func (c *Client) AddressSearch(ctx context.Context, query string) ([]Place, error) {
	params := url.Values{}
	params.Set("query", query)
	return c.searchPlaces(ctx, addressSearchPath, params)
}

func (c *Client) KeywordSearch(ctx context.Context, query string, region Region) ([]Place, error) {
	params := url.Values{}
	params.Set("query", query)
	if region.RadiusMeters > 0 {
		params.Set("x", strconv.FormatFloat(region.Origin.Lng, 'f', -1, 64))
		params.Set("y", strconv.FormatFloat(region.Origin.Lat, 'f', -1, 64))
		params.Set("radius", strconv.Itoa(region.RadiusMeters))
	}
	if region.SortBy != "" {
		params.Set("sort", string(region.SortBy))
	}
	if region.Limit > 0 {
		params.Set("size", strconv.Itoa(region.Limit))
	}
	return c.searchPlaces(ctx, keywordSearchPath, params)
}

func (c *Client) ReverseGeocode(ctx context.Context, coords geo.Coordinates) (string, error) {
	params := url.Values{}
	params.Set("x", strconv.FormatFloat(coords.Lng, 'f', -1, 64))
	params.Set("y", strconv.FormatFloat(coords.Lat, 'f', -1, 64))

	body, err := c.get(ctx, reverseGeoPath, params)
	if err != nil {
		return "", err
	}

	var resp reverseResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("parse reverse geocode response: %w", err)
	}
	if len(resp.Documents) == 0 {
		return "", nil
	}

	doc := resp.Documents[0]
	if doc.RoadAddress.AddressName != "" {
		return doc.RoadAddress.AddressName, nil
	}
	return doc.Address.AddressName, nil
}

func (c *Client) searchPlaces(ctx context.Context, path string, params url.Values) ([]Place, error) {
	body, err := c.get(ctx, path, params)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse search response: %w", err)
	}

	places := make([]Place, 0, len(resp.Documents))
	for _, doc := range resp.Documents {
		lng, errX := strconv.ParseFloat(doc.X, 64)
		lat, errY := strconv.ParseFloat(doc.Y, 64)
		if errX != nil || errY != nil {
			c.logger.Warn("skipping document with unparsable coordinates", map[string]interface{}{
				"id": doc.ID, "x": doc.X, "y": doc.Y,
			})
			continue
		}
		name := doc.PlaceName
		if name == "" {
			name = doc.AddressName
		}
		address := doc.RoadAddress
		if address == "" {
			address = doc.AddressName
		}
		places = append(places, Place{
			ID:          doc.ID,
			Name:        name,
			Address:     address,
			Category:    doc.CategoryName,
			Coordinates: geo.Coordinates{Lat: lat, Lng: lng},
		})
	}
	return places, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "KakaoAK "+c.apiKey)

	resp, err := c.http.DoWithContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("provider returned status %d: %s", resp.StatusCode, string(snippet))
	}

	return io.ReadAll(resp.Body)
}

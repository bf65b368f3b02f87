package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/mmcloughlin/geohash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listing-discovery/internal/common/logger"
	"listing-discovery/internal/geo"
)

// fakeProvider scripts the raw provider so the gateway's fallback and
// normalization logic can be exercised without a network.
type fakeProvider struct {
	addressResults []Place
	addressErr     error
	keywordResults []Place
	keywordErr     error
	reverseResult  string
	reverseErr     error

	addressCalls int
	keywordCalls int
	reverseCalls int

	lastKeywordRegion Region
}

func (f *fakeProvider) AddressSearch(ctx context.Context, query string) ([]Place, error) {
	f.addressCalls++
	return f.addressResults, f.addressErr
}

func (f *fakeProvider) KeywordSearch(ctx context.Context, query string, region Region) ([]Place, error) {
	f.keywordCalls++
	f.lastKeywordRegion = region
	return f.keywordResults, f.keywordErr
}

func (f *fakeProvider) ReverseGeocode(ctx context.Context, coords geo.Coordinates) (string, error) {
	f.reverseCalls++
	return f.reverseResult, f.reverseErr
}

var testRegion = Region{
	Origin:       geo.Coordinates{Lat: 35.8714, Lng: 128.6014},
	RadiusMeters: 20000,
	SortBy:       SortByDistance,
}

func newTestGateway(t *testing.T, p Provider) *Gateway {
	return NewGateway(p, nil, GatewayConfig{DefaultRegion: testRegion}, logger.NewTestLogger(t))
}

func TestGateway_ResolveLocation_AddressHit(t *testing.T) {
	p := &fakeProvider{
		addressResults: []Place{
			{ID: "1", Coordinates: geo.Coordinates{Lat: 35.869, Lng: 128.596}},
			{ID: "2", Coordinates: geo.Coordinates{Lat: 35.870, Lng: 128.597}},
		},
	}
	gw := newTestGateway(t, p)

	coords, err := gw.ResolveLocation(context.Background(), "대구 중구 동성로2가")
	require.NoError(t, err)

	// First ranked result wins; no keyword fallback is issued.
	assert.InDelta(t, 35.869, coords.Lat, 1e-9)
	assert.Equal(t, 1, p.addressCalls)
	assert.Zero(t, p.keywordCalls)
}

func TestGateway_ResolveLocation_KeywordFallback(t *testing.T) {
	p := &fakeProvider{
		addressResults: nil, // colloquial names don't geocode as addresses
		keywordResults: []Place{
			{ID: "p1", Name: "반월당역", Coordinates: geo.Coordinates{Lat: 35.8659, Lng: 128.5934}},
		},
	}
	gw := newTestGateway(t, p)

	coords, err := gw.ResolveLocation(context.Background(), "반월당역")
	require.NoError(t, err)
	assert.InDelta(t, 35.8659, coords.Lat, 1e-9)
	assert.Equal(t, 1, p.addressCalls)
	assert.Equal(t, 1, p.keywordCalls)
	assert.Equal(t, testRegion, p.lastKeywordRegion, "fallback must be biased to the default region")
}

func TestGateway_ResolveLocation_AddressErrorStillFallsBack(t *testing.T) {
	p := &fakeProvider{
		addressErr: errors.New("provider unavailable"),
		keywordResults: []Place{
			{ID: "p1", Coordinates: geo.Coordinates{Lat: 35.9, Lng: 128.6}},
		},
	}
	gw := newTestGateway(t, p)

	coords, err := gw.ResolveLocation(context.Background(), "동성로")
	require.NoError(t, err)
	assert.InDelta(t, 35.9, coords.Lat, 1e-9)
}

func TestGateway_ResolveLocation_AllFailuresNormalizeToNotFound(t *testing.T) {
	cases := []struct {
		name string
		p    *fakeProvider
	}{
		{"both empty", &fakeProvider{}},
		{"both error", &fakeProvider{addressErr: errors.New("down"), keywordErr: errors.New("down")}},
		{"keyword error after empty address", &fakeProvider{keywordErr: errors.New("quota")}},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			gw := newTestGateway(t, tt.p)
			_, err := gw.ResolveLocation(context.Background(), "nowhere")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestGateway_ResolveLocation_EmptyQuery(t *testing.T) {
	p := &fakeProvider{}
	gw := newTestGateway(t, p)

	_, err := gw.ResolveLocation(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, p.addressCalls)
}

func TestGateway_ResolveLocation_CacheHitSkipsProvider(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cached, _ := json.Marshal(geo.Coordinates{Lat: 35.8714, Lng: 128.6014})
	mock.ExpectGet("geo:resolve:동성로").SetVal(string(cached))

	p := &fakeProvider{}
	gw := NewGateway(p, db, GatewayConfig{DefaultRegion: testRegion}, logger.NewNoOpLogger())

	coords, err := gw.ResolveLocation(context.Background(), "동성로")
	require.NoError(t, err)
	assert.InDelta(t, 35.8714, coords.Lat, 1e-9)
	assert.Zero(t, p.addressCalls)
	assert.Zero(t, p.keywordCalls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGateway_ResolveLocation_CacheMissThenStore(t *testing.T) {
	db, mock := redismock.NewClientMock()
	coords := geo.Coordinates{Lat: 35.869, Lng: 128.596}
	data, _ := json.Marshal(coords)

	mock.ExpectGet("geo:resolve:동성로2가").RedisNil()
	mock.ExpectSet("geo:resolve:동성로2가", data, time.Hour).SetVal("OK")

	p := &fakeProvider{addressResults: []Place{{ID: "1", Coordinates: coords}}}
	gw := NewGateway(p, db, GatewayConfig{DefaultRegion: testRegion, CacheTTL: time.Hour}, logger.NewNoOpLogger())

	got, err := gw.ResolveLocation(context.Background(), "동성로2가")
	require.NoError(t, err)
	assert.Equal(t, coords, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGateway_ReverseResolve(t *testing.T) {
	p := &fakeProvider{reverseResult: "대구 중구 동성로 20"}
	gw := newTestGateway(t, p)

	addr, err := gw.ReverseResolve(context.Background(), geo.Coordinates{Lat: 35.8714, Lng: 128.6014})
	require.NoError(t, err)
	assert.Equal(t, "대구 중구 동성로 20", addr)
}

func TestGateway_ReverseResolve_GeohashCacheKey(t *testing.T) {
	coords := geo.Coordinates{Lat: 35.8714, Lng: 128.6014}
	key := "geo:reverse:" + geohash.EncodeWithPrecision(coords.Lat, coords.Lng, 9)

	db, mock := redismock.NewClientMock()
	mock.ExpectGet(key).SetVal("대구 중구 동성로 20")

	p := &fakeProvider{}
	gw := NewGateway(p, db, GatewayConfig{DefaultRegion: testRegion}, logger.NewNoOpLogger())

	addr, err := gw.ReverseResolve(context.Background(), coords)
	require.NoError(t, err)
	assert.Equal(t, "대구 중구 동성로 20", addr)
	assert.Zero(t, p.reverseCalls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGateway_ReverseResolve_Misses(t *testing.T) {
	t.Run("invalid coordinates", func(t *testing.T) {
		gw := newTestGateway(t, &fakeProvider{})
		_, err := gw.ReverseResolve(context.Background(), geo.Coordinates{Lat: 91, Lng: 0})
		assert.ErrorIs(t, err, ErrNotFound)
	})
	t.Run("provider error", func(t *testing.T) {
		gw := newTestGateway(t, &fakeProvider{reverseErr: errors.New("down")})
		_, err := gw.ReverseResolve(context.Background(), geo.Coordinates{Lat: 35, Lng: 128})
		assert.ErrorIs(t, err, ErrNotFound)
	})
	t.Run("empty address", func(t *testing.T) {
		gw := newTestGateway(t, &fakeProvider{})
		_, err := gw.ReverseResolve(context.Background(), geo.Coordinates{Lat: 35, Lng: 128})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestGateway_SearchPlaces(t *testing.T) {
	p := &fakeProvider{
		keywordResults: []Place{
			{ID: "a", Name: "카페 A", Category: "카페", Coordinates: geo.Coordinates{Lat: 35.87, Lng: 128.60}},
			{ID: "b", Name: "카페 B", Category: "카페", Coordinates: geo.Coordinates{Lat: 35.88, Lng: 128.61}},
		},
	}
	gw := newTestGateway(t, p)

	results, err := gw.SearchPlaces(context.Background(), "카페", testRegion)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "카페 A", results[0].Name)

	// A fresh call re-queries the provider; place results are never
	// cached.
	_, err = gw.SearchPlaces(context.Background(), "카페", testRegion)
	require.NoError(t, err)
	assert.Equal(t, 2, p.keywordCalls)
}

func TestGateway_SearchPlaces_LimitCapsResults(t *testing.T) {
	p := &fakeProvider{
		keywordResults: []Place{
			{ID: "a", Coordinates: geo.Coordinates{Lat: 35.87, Lng: 128.60}},
			{ID: "b", Coordinates: geo.Coordinates{Lat: 35.88, Lng: 128.61}},
			{ID: "c", Coordinates: geo.Coordinates{Lat: 35.89, Lng: 128.62}},
		},
	}
	gw := newTestGateway(t, p)

	region := testRegion
	region.Limit = 2
	results, err := gw.SearchPlaces(context.Background(), "카페", region)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)

	// The cap also reaches the provider as a request hint.
	assert.Equal(t, 2, p.lastKeywordRegion.Limit)
}

func TestGateway_SearchPlaces_DefaultLimitFromConfig(t *testing.T) {
	p := &fakeProvider{
		keywordResults: []Place{{ID: "a", Coordinates: geo.Coordinates{Lat: 35.87, Lng: 128.60}}},
	}
	region := testRegion
	region.Limit = 5
	gw := NewGateway(p, nil, GatewayConfig{DefaultRegion: region}, logger.NewNoOpLogger())

	_, err := gw.SearchPlaces(context.Background(), "카페", Region{SortBy: SortByDistance})
	require.NoError(t, err)
	assert.Equal(t, 5, p.lastKeywordRegion.Limit)
}

func TestGateway_SearchPlaces_NotFound(t *testing.T) {
	gw := newTestGateway(t, &fakeProvider{})
	_, err := gw.SearchPlaces(context.Background(), "없는곳", testRegion)
	assert.ErrorIs(t, err, ErrNotFound)
}

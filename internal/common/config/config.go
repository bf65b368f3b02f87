package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Geocoding GeocodingConfig `mapstructure:"geocoding"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Map       MapConfig       `mapstructure:"map"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	ListenAddr  string `mapstructure:"listen_addr"`
}

// GeocodingConfig configures the external geocoding/place-search
// provider and the default region the keyword fallback is biased to.
type GeocodingConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Timeout int    `mapstructure:"timeout"` // milliseconds

	// Keyword fallback bias: a fixed origin plus a fixed search radius.
	DefaultRegionLat     float64 `mapstructure:"default_region_lat"`
	DefaultRegionLng     float64 `mapstructure:"default_region_lng"`
	DefaultRadiusMeters  int     `mapstructure:"default_radius_meters"`
	CacheTTL             int     `mapstructure:"cache_ttl"` // seconds
	ReverseCachePrecision uint   `mapstructure:"reverse_cache_precision"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string.
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// DiscoveryConfig tunes the search coordinator.
type DiscoveryConfig struct {
	// Listing fetches run against potentially large unindexed scans, so
	// the deadline is deliberately generous.
	ListingFetchTimeout int `mapstructure:"listing_fetch_timeout"` // milliseconds
	ListingLimit        int `mapstructure:"listing_limit"`
	PlaceLimit          int `mapstructure:"place_limit"`
	FavoriteCacheTTL    int `mapstructure:"favorite_cache_ttl"` // seconds
}

// MapConfig sets the initial map view.
type MapConfig struct {
	DefaultCenterLat float64 `mapstructure:"default_center_lat"`
	DefaultCenterLng float64 `mapstructure:"default_center_lng"`
	DefaultZoom      int     `mapstructure:"default_zoom"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// GetDuration converts milliseconds from config to time.Duration.
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

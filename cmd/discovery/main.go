// cmd/discovery/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"listing-discovery/internal/common/config"
	"listing-discovery/internal/common/database"
	apperrors "listing-discovery/internal/common/errors"
	"listing-discovery/internal/common/logger"
	"listing-discovery/internal/common/observability"
	"listing-discovery/internal/discovery"
	"listing-discovery/internal/geo"
	"listing-discovery/internal/geocode"
	"listing-discovery/internal/mapstate"
	"listing-discovery/internal/models"
	"listing-discovery/internal/store"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New("info", "console")
		boot.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting discovery engine...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var rds *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rds, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rds.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rds.Close()
	zapLog.Info("Redis connected successfully")

	// --- Geocoding gateway ---
	defaultRegion := geocode.Region{
		Origin: geo.Coordinates{
			Lat: cfg.Geocoding.DefaultRegionLat,
			Lng: cfg.Geocoding.DefaultRegionLng,
		},
		RadiusMeters: cfg.Geocoding.DefaultRadiusMeters,
		SortBy:       geocode.SortByDistance,
		Limit:        cfg.Discovery.PlaceLimit,
	}
	provider := geocode.NewClient(
		cfg.Geocoding.BaseURL,
		cfg.Geocoding.APIKey,
		config.GetDuration(cfg.Geocoding.Timeout),
		log,
	)
	gateway := geocode.NewGateway(provider, rds.Client, geocode.GatewayConfig{
		DefaultRegion:         defaultRegion,
		CacheTTL:              time.Duration(cfg.Geocoding.CacheTTL) * time.Second,
		ReverseCachePrecision: cfg.Geocoding.ReverseCachePrecision,
	}, log)

	// --- Stores ---
	listingStore := store.NewListingStore(pg.DB, config.GetDuration(cfg.Discovery.ListingFetchTimeout), log)
	favoriteStore := store.NewFavoriteStore(pg.DB, rds.Client,
		time.Duration(cfg.Discovery.FavoriteCacheTTL)*time.Second, log)

	// --- Map view + coordinator ---
	mapCtrl := mapstate.NewController(mapstate.Config{
		Center: geo.Coordinates{Lat: cfg.Map.DefaultCenterLat, Lng: cfg.Map.DefaultCenterLng},
		Zoom:   cfg.Map.DefaultZoom,
	}, log)
	mapCtrl.OnRegistrationRequested(func(req mapstate.RegistrationRequest) {
		log.Info("listing registration requested", map[string]interface{}{
			"id": req.ID, "address": req.Address,
			"lat": req.Coordinates.Lat, "lng": req.Coordinates.Lng,
		})
	})

	coordinator := discovery.NewCoordinator(gateway, listingStore, mapCtrl, obs, discovery.Config{
		ListingLimit: cfg.Discovery.ListingLimit,
		PlaceRegion:  defaultRegion,
	}, log)
	defer coordinator.Close()

	// --- HTTP surface ---
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := pg.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/api/search", func(w http.ResponseWriter, r *http.Request) {
		keyword := r.URL.Query().Get("q")
		if keyword == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing q parameter"})
			return
		}
		coordinator.SetViewer(viewerFromRequest(r))
		result, err := coordinator.Search(r.Context(), keyword)
		if err != nil {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, result)
	})

	mux.HandleFunc("/api/markers", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, coordinator.Markers())
	})

	mux.HandleFunc("/api/filter", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, coordinator.Filter())
		case http.MethodPut, http.MethodPost:
			body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
				return
			}
			if err := coordinator.RestoreFilterState(body); err != nil {
				writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
				return
			}
			writeJSON(w, http.StatusOK, coordinator.Filter())
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/favorites", func(w http.ResponseWriter, r *http.Request) {
		viewer := viewerFromRequest(r)
		if viewer.Anonymous() {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "login required"})
			return
		}
		listingID := r.URL.Query().Get("listing_id")
		if listingID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing listing_id"})
			return
		}
		var err error
		switch r.Method {
		case http.MethodPost:
			err = favoriteStore.Add(r.Context(), viewer.UserID, listingID, coordinator.Keyword())
		case http.MethodDelete:
			err = favoriteStore.Remove(r.Context(), viewer.UserID, listingID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	// The browser reports the outcome of its geolocation request here:
	// either gesture-derived coordinates or the failure kind. Failures
	// are normalized to the standard taxonomy and never retried.
	mux.HandleFunc("/api/locate", func(w http.ResponseWriter, r *http.Request) {
		if kind := r.URL.Query().Get("error"); kind != "" {
			code := apperrors.ErrCodeGeolocationUnavailable
			switch kind {
			case "denied":
				code = apperrors.ErrCodeGeolocationDenied
			case "timeout":
				code = apperrors.ErrCodeGeolocationTimeout
			}
			writeJSON(w, http.StatusBadRequest, apperrors.NewGeolocationError(code))
			return
		}
		coords, ok := coordsFromQuery(r)
		if !ok {
			writeJSON(w, http.StatusBadRequest, apperrors.NewGeolocationError(apperrors.ErrCodeGeolocationUnavailable))
			return
		}
		if err := mapCtrl.CenterOnUser(coords); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, coords)
	})

	// Click-to-pin flow: arm, click (reverse-geocodes and completes), cancel.
	mux.HandleFunc("/api/pin/enable", func(w http.ResponseWriter, r *http.Request) {
		mapCtrl.EnablePinMode("지도를 클릭해 매물 위치를 지정하세요")
		writeJSON(w, http.StatusOK, map[string]string{"state": string(mapCtrl.State())})
	})
	mux.HandleFunc("/api/pin/click", func(w http.ResponseWriter, r *http.Request) {
		coords, ok := coordsFromQuery(r)
		if !ok || !mapCtrl.MapClicked(coords) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "pin mode not armed or invalid coordinates"})
			return
		}
		address, err := gateway.ReverseResolve(r.Context(), coords)
		if err != nil {
			// The pin stays placed; the form just starts without a
			// prefilled address.
			address = ""
		}
		mapCtrl.ResolveCompleted(address)
		writeJSON(w, http.StatusOK, map[string]string{"address": address})
	})
	mux.HandleFunc("/api/pin/cancel", func(w http.ResponseWriter, r *http.Request) {
		mapCtrl.Cancel()
		w.WriteHeader(http.StatusNoContent)
	})

	addr := cfg.App.ListenAddr
	if addr == "" {
		addr = ":8080"
	}
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}

	zapLog.Info("Discovery engine stopped")
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// viewerFromRequest derives the viewer identity from trusted gateway
// headers. An absent user id means an anonymous viewer.
func viewerFromRequest(r *http.Request) models.Viewer {
	return models.Viewer{
		UserID:         r.Header.Get("X-User-Id"),
		Role:           models.Role(r.Header.Get("X-User-Role")),
		Tier:           models.Tier(r.Header.Get("X-User-Tier")),
		ApprovalStatus: models.ApprovalStatus(r.Header.Get("X-Approval-Status")),
	}
}

func coordsFromQuery(r *http.Request) (geo.Coordinates, bool) {
	var coords geo.Coordinates
	if _, err := fmt.Sscanf(r.URL.Query().Get("lat"), "%f", &coords.Lat); err != nil {
		return coords, false
	}
	if _, err := fmt.Sscanf(r.URL.Query().Get("lng"), "%f", &coords.Lng); err != nil {
		return coords, false
	}
	return coords, coords.Valid()
}

package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/orbitcommerce/auth-core/internal/config"
	pkgredis "github.com/orbitcommerce/auth-core/internal/pkg/redis"
	"go.uber.org/zap"
)

const geoCachePrefix = "auth:geo:"

// Location is a resolved client location. The zero-ish value
// ("Unknown, Unknown") is used whenever resolution fails.
type Location struct {
	Country string  `json:"country"`
	City    string  `json:"city"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

func (l Location) String() string {
	return fmt.Sprintf("%s, %s", l.City, l.Country)
}

func unknownLocation() Location {
	return Location{Country: "Unknown", City: "Unknown"}
}

// GeoClient resolves client IPs through an ip-api style collaborator.
// Lookups are best-effort: any failure degrades to Unknown and is only
// logged, never surfaced. Results are cached in Redis.
type GeoClient struct {
	base     string
	http     *http.Client
	cache    *pkgredis.Client
	cacheTTL time.Duration
	logger   *zap.Logger
}

func NewGeoClient(cfg config.GeoConfig, cache *pkgredis.Client, logger *zap.Logger) *GeoClient {
	ttl := cfg.CacheTTL.Std()
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &GeoClient{
		base:     cfg.BaseURL,
		http:     &http.Client{Timeout: 3 * time.Second},
		cache:    cache,
		cacheTTL: ttl,
		logger:   logger,
	}
}

// Lookup resolves ip to a location. It never returns an error.
func (g *GeoClient) Lookup(ctx context.Context, ip string) Location {
	if ip == "127.0.0.1" || ip == "::1" {
		return Location{Country: "Localhost", City: "Localhost"}
	}
	if ip == "" {
		return unknownLocation()
	}

	if loc, ok := g.cached(ctx, ip); ok {
		return loc
	}

	loc, err := g.fetch(ctx, ip)
	if err != nil {
		g.logger.Warn("geo lookup failed", zap.String("ip", ip), zap.Error(err))
		return unknownLocation()
	}
	g.store(ctx, ip, loc)
	return loc
}

// geoResponse is the ip-api wire shape.
type geoResponse struct {
	Status  string  `json:"status"`
	Country string  `json:"country"`
	City    string  `json:"city"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

func (g *GeoClient) fetch(ctx context.Context, ip string) (Location, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.base+"/json/"+ip, nil)
	if err != nil {
		return Location{}, err
	}
	resp, err := g.http.Do(req)
	if err != nil {
		return Location{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Location{}, fmt.Errorf("geo provider status %d", resp.StatusCode)
	}

	var body geoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Location{}, err
	}
	if body.Status != "success" {
		return Location{}, fmt.Errorf("geo provider reported %q", body.Status)
	}

	loc := Location{Country: body.Country, City: body.City, Lat: body.Lat, Lon: body.Lon}
	if loc.Country == "" {
		loc.Country = "Unknown"
	}
	if loc.City == "" {
		loc.City = "Unknown"
	}
	return loc, nil
}

func (g *GeoClient) cached(ctx context.Context, ip string) (Location, bool) {
	if g.cache == nil {
		return Location{}, false
	}
	raw, err := g.cache.Get(ctx, geoCachePrefix+ip)
	if err != nil || raw == "" {
		return Location{}, false
	}
	var loc Location
	if err := json.Unmarshal([]byte(raw), &loc); err != nil {
		return Location{}, false
	}
	return loc, true
}

func (g *GeoClient) store(ctx context.Context, ip string, loc Location) {
	if g.cache == nil {
		return
	}
	raw, err := json.Marshal(loc)
	if err != nil {
		return
	}
	if err := g.cache.Set(ctx, geoCachePrefix+ip, raw, g.cacheTTL); err != nil {
		g.logger.Debug("geo cache write failed", zap.String("ip", ip), zap.Error(err))
	}
}

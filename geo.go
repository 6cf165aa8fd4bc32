package lighthouse

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"
)

// DefaultGeoEndpoint is the free ip-api.com JSON endpoint.
const DefaultGeoEndpoint = "http://ip-api.com/json"

const defaultGeoTimeout = 5 * time.Second

// GeoInfo is a coarse location derived from a client network address.
// Absent fields mean the lookup failed or was skipped; that is never fatal.
type GeoInfo struct {
	Country string `json:"country,omitempty"`
	Region  string `json:"region,omitempty"`
}

// GeoEnricher resolves client addresses to coarse locations via an external
// lookup service. Strictly fail-open: any error, timeout, or malformed
// response collapses to an empty GeoInfo. It must never gate a verdict.
type GeoEnricher struct {
	endpoint string
	client   *http.Client
	timeout  time.Duration
	log      *slog.Logger
}

// GeoEnricherOptions configures a GeoEnricher. Zero values mean defaults.
type GeoEnricherOptions struct {
	Endpoint string
	Client   *http.Client
	Timeout  time.Duration
	Logger   *slog.Logger
}

func NewGeoEnricher(opts GeoEnricherOptions) *GeoEnricher {
	g := &GeoEnricher{
		endpoint: opts.Endpoint,
		client:   opts.Client,
		timeout:  opts.Timeout,
		log:      opts.Logger,
	}
	if g.endpoint == "" {
		g.endpoint = DefaultGeoEndpoint
	}
	if g.client == nil {
		g.client = http.DefaultClient
	}
	if g.timeout <= 0 {
		g.timeout = defaultGeoTimeout
	}
	if g.log == nil {
		g.log = slog.Default()
	}
	return g
}

// Lookup resolves addr to a GeoInfo. Private and loopback addresses are
// skipped without a network call; the public service cannot resolve them.
func (g *GeoEnricher) Lookup(ctx context.Context, addr string) GeoInfo {
	if addr == "" {
		return GeoInfo{}
	}
	if ip := net.ParseIP(addr); ip != nil && (ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified()) {
		return GeoInfo{}
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"/"+url.PathEscape(addr), nil)
	if err != nil {
		return GeoInfo{}
	}

	resp, err := g.client.Do(req)
	if err != nil {
		g.log.Debug("geo lookup failed", "addr", addr, "error", err)
		return GeoInfo{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		g.log.Debug("geo lookup failed", "addr", addr, "status", resp.Status)
		return GeoInfo{}
	}

	var body struct {
		Country    string `json:"country"`
		RegionName string `json:"regionName"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		g.log.Debug("geo lookup failed", "addr", addr, "error", err)
		return GeoInfo{}
	}

	return GeoInfo{Country: body.Country, Region: body.RegionName}
}

// Package metrics exposes operational counters for the cache layers and
// the multiplier batch job. Collection is optional: when disabled (or not
// initialized, as in tests) every record call is a no-op.
package metrics

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/VictoriaMetrics/metrics"
)

// Config for metrics collection.
type Config struct {
	Enabled bool
	Port    int
	Path    string
}

var config Config

// Init loads metrics configuration from environment variables and, when
// enabled, starts the HTTP server serving the Prometheus endpoint.
func Init() {
	config = Config{
		Enabled: getEnvBool("METRICS_ENABLED", true),
		Port:    getEnvInt("METRICS_PORT", 8081),
		Path:    getEnvString("METRICS_PATH", "/metrics"),
	}

	if !config.Enabled {
		log.Printf("[METRICS] Metrics collection is disabled")
		return
	}

	go startMetricsServer()
	log.Printf("[METRICS] Metrics system initialized on port %d", config.Port)
}

func startMetricsServer() {
	mux := http.NewServeMux()
	mux.HandleFunc(config.Path, func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w, true)
	})

	addr := fmt.Sprintf("127.0.0.1:%d", config.Port)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("[METRICS] Error starting metrics server: %v", err)
	}
}

// IsEnabled returns true if metrics collection is enabled.
func IsEnabled() bool {
	return config.Enabled
}

// CacheHit counts a smart-cache hit.
func CacheHit() { inc(`scriptvoid_cache_lookups_total{result="hit"}`) }

// CacheMiss counts an absent or expired smart-cache entry.
func CacheMiss() { inc(`scriptvoid_cache_lookups_total{result="miss"}`) }

// CacheStale counts an entry rejected by the change-event check.
func CacheStale() { inc(`scriptvoid_cache_lookups_total{result="stale"}`) }

// WarmCycle counts a completed cache warm cycle.
func WarmCycle() { inc(`scriptvoid_cache_warm_cycles_total`) }

// BatchProcessed adds to the count of scripts examined by the multiplier
// batch job.
func BatchProcessed(n int) { add(`scriptvoid_multiplier_batch_processed_total`, n) }

// BatchUpdated adds to the count of scripts whose multiplier actually
// changed and was written back.
func BatchUpdated(n int) { add(`scriptvoid_multiplier_batch_updated_total`, n) }

// PointsAwarded counts one engagement point award of the given kind
// (view, like, comment, bump, submit).
func PointsAwarded(kind string) {
	inc(`scriptvoid_points_awards_total{kind="` + kind + `"}`)
}

// CodeRedeemed counts one promotion code redemption outcome.
func CodeRedeemed(codeType, outcome string) {
	inc(`scriptvoid_code_redemptions_total{type="` + codeType + `",outcome="` + outcome + `"}`)
}

func inc(name string) {
	if !config.Enabled {
		return
	}
	metrics.GetOrCreateCounter(name).Inc()
}

func add(name string, n int) {
	if !config.Enabled || n <= 0 {
		return
	}
	metrics.GetOrCreateCounter(name).Add(n)
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

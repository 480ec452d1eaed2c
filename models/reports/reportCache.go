package reports

import (
	"os"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/sonar_removals/config"
)

const removalListCacheKey = "report:removal_list"

func reportCacheEnabled() bool {
	v := strings.TrimSpace(os.Getenv("ENABLE_REPORT_CACHE"))
	return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes") || strings.EqualFold(v, "on")
}

func reportCacheTTL() time.Duration {
	// Env: REPORT_CACHE_TTL_SECONDS (default 120s)
	ttl := 120
	if v := strings.TrimSpace(os.Getenv("REPORT_CACHE_TTL_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			ttl = n
		}
	}
	return time.Duration(ttl) * time.Second
}

// CacheRemovalList stores the latest pipeline result for the download server.
// Nil-safe when redis is not configured.
func CacheRemovalList(result *PipelineResult) error {
	if !reportCacheEnabled() {
		return nil
	}
	return config.SetRedisObject(removalListCacheKey, result, reportCacheTTL())
}

// CachedRemovalList returns the cached result if one is fresh.
func CachedRemovalList() (*PipelineResult, bool, error) {
	if !reportCacheEnabled() {
		return nil, false, nil
	}
	var result PipelineResult
	found, err := config.GetRedisObject(removalListCacheKey, &result)
	if err != nil || !found {
		return nil, false, err
	}
	return &result, true, nil
}

// InvalidateRemovalListCache drops the cached copy, e.g. after a manual rerun.
func InvalidateRemovalListCache() error {
	return config.RemoveRedisKey(removalListCacheKey)
}

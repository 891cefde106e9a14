package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/incubatehub/compliance-api/pkg/middleware/requestid"
)

const (
	responseMetaKey = "response_meta"
	cacheHitKey     = "cache_hit"
	cacheStaleKey   = "cache_stale"
	companyCodeKey  = "company_code"
	requestIDKey    = "request_id"
)

// WithResponseMeta initialises the metadata map compliance handlers attach to
// their envelopes, seeded with the request id when one was assigned.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		meta := map[string]interface{}{}
		if id := requestid.Value(c); id != "" {
			meta[requestIDKey] = id
		}
		c.Set(responseMetaKey, meta)
		c.Next()
		meta = ensureMeta(c)
		if _, exists := meta["processing_time_ms"]; !exists {
			meta["processing_time_ms"] = time.Since(start).Milliseconds()
		}
	}
}

// SetCacheHit records whether the overview came from the cache.
func SetCacheHit(c *gin.Context, hit bool) {
	ensureMeta(c)[cacheHitKey] = hit
}

// SetCompanyCode records the company the request was scoped to.
func SetCompanyCode(c *gin.Context, companyCode string) {
	companyCode = strings.TrimSpace(companyCode)
	if companyCode == "" {
		return
	}
	ensureMeta(c)[companyCodeKey] = companyCode
}

// MarkCacheStale flags that cached overviews for the company may lag behind this write.
func MarkCacheStale(c *gin.Context) {
	ensureMeta(c)[cacheStaleKey] = true
}

// ExtractMeta returns the metadata map stored on the context.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	if meta, exists := c.Get(responseMetaKey); exists {
		if typed, ok := meta.(map[string]interface{}); ok {
			return typed
		}
	}
	return nil
}

func ensureMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return map[string]interface{}{}
	}
	if meta := ExtractMeta(c); meta != nil {
		return meta
	}
	meta := make(map[string]interface{})
	c.Set(responseMetaKey, meta)
	return meta
}

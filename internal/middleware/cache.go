package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const reportMetaKey = "report_meta"

// ReportMeta is the metadata attached to report responses.
type ReportMeta struct {
	CacheHit bool
	Elapsed  time.Duration
}

// SetReportMeta records how a report was served on the request context.
func SetReportMeta(c *gin.Context, hit bool, elapsed time.Duration) {
	c.Set(reportMetaKey, ReportMeta{CacheHit: hit, Elapsed: elapsed})
	if hit {
		c.Header("X-Cache", "HIT")
	} else {
		c.Header("X-Cache", "MISS")
	}
}

// ResponseMeta renders the stored report metadata for the envelope. It
// returns nil when no report ran.
func ResponseMeta(c *gin.Context) map[string]interface{} {
	value, ok := c.Get(reportMetaKey)
	if !ok {
		return nil
	}
	meta, ok := value.(ReportMeta)
	if !ok {
		return nil
	}
	return map[string]interface{}{
		"cache_hit":          meta.CacheHit,
		"processing_time_ms": float64(meta.Elapsed.Microseconds()) / 1000,
	}
}

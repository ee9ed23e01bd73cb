package cache

import (
	"time"

	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/anonymize"
)

// Entry is the stored form of a cached anonymization result. Request
// scoped fields (request id, duration) are never cached; the server
// adds them fresh on every response.
type Entry struct {
	Result   anonymize.Result `json:"result"`
	CachedAt time.Time        `json:"cached_at"`
	TTL      int64            `json:"ttl"`
}

// Stats represents cache performance statistics
type Stats struct {
	Hits        int64   `json:"hits"`
	Misses      int64   `json:"misses"`
	HitRate     float64 `json:"hit_rate"`
	TotalKeys   int64   `json:"total_keys"`
	MemoryUsage int64   `json:"memory_usage_bytes"`
}

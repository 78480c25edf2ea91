package application

import (
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// availabilityCache keeps recent availability answers so repeated pre-submit
// checks for the same window skip the store while no detection has run.
// A nil cache is a valid, always-empty cache. The LRU bounds the size and
// expiry is checked against the injected clock on read.
type availabilityCache struct {
	now     func() time.Time
	ttl     time.Duration
	entries *lru.Cache[string, availabilityCacheEntry]
}

type availabilityCacheEntry struct {
	result    Availability
	expiresAt time.Time
}

// newAvailabilityCache returns nil when ttl is not positive, disabling caching.
func newAvailabilityCache(ttl time.Duration, maxEntries int, now func() time.Time) *availabilityCache {
	if ttl <= 0 {
		return nil
	}
	if maxEntries <= 0 {
		maxEntries = 256
	}
	if now == nil {
		now = time.Now
	}
	entries, err := lru.New[string, availabilityCacheEntry](maxEntries)
	if err != nil {
		return nil
	}
	return &availabilityCache{now: now, ttl: ttl, entries: entries}
}

func (c *availabilityCache) Get(key string) (Availability, bool) {
	if c == nil {
		return Availability{}, false
	}
	entry, ok := c.entries.Get(key)
	if !ok {
		return Availability{}, false
	}
	if c.now().After(entry.expiresAt) {
		c.entries.Remove(key)
		return Availability{}, false
	}
	return cloneAvailability(entry.result), true
}

func (c *availabilityCache) Store(key string, result Availability) {
	if c == nil {
		return
	}
	c.entries.Add(key, availabilityCacheEntry{
		result:    cloneAvailability(result),
		expiresAt: c.now().Add(c.ttl),
	})
}

func (c *availabilityCache) Invalidate() {
	if c == nil {
		return
	}
	c.entries.Purge()
}

func (c *availabilityCache) Len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}

func cloneAvailability(result Availability) Availability {
	out := Availability{Available: result.Available}
	if len(result.Conflicts) > 0 {
		out.Conflicts = make([]string, len(result.Conflicts))
		copy(out.Conflicts, result.Conflicts)
	}
	return out
}

func buildAvailabilityCacheKey(query AvailabilityQuery) string {
	var facility string
	if query.FacilityID != nil {
		facility = "f:" + *query.FacilityID
	}

	builder := strings.Builder{}
	builder.WriteString(query.SubjectID)
	builder.WriteString("|")
	builder.WriteString(facility)
	builder.WriteString("|")
	builder.WriteString(query.Start.UTC().Format(time.RFC3339Nano))
	builder.WriteString("|")
	builder.WriteString(query.End.UTC().Format(time.RFC3339Nano))
	builder.WriteString("|")
	builder.WriteString(query.ExcludeEntryID)
	return builder.String()
}

package layout

type cacheEntry struct {
	Layout TypeLayout
	Struct *StructLayout // только для структур
	Err    *LayoutError
}

// cache keyed by canonical type text (tokens joined without spaces).
type cache struct {
	byType map[string]*cacheEntry
}

func newCache() *cache {
	return &cache{byType: make(map[string]*cacheEntry, 64)}
}

func (c *cache) get(key string) (*cacheEntry, bool) {
	if c == nil {
		return nil, false
	}
	e, ok := c.byType[key]
	return e, ok
}

func (c *cache) put(key string, e *cacheEntry) {
	if c == nil {
		return
	}
	if e == nil {
		delete(c.byType, key)
		return
	}
	c.byType[key] = e
}

func (c *cache) reset() {
	if c == nil {
		return
	}
	clear(c.byType)
}

package badger

// Key prefixes for different data types
const (
	vectorEntryPrefix = "vecent"
	vectorDimKey      = "vecdim"
	cacheRecordPrefix = "embrec"
)

// makeVectorKey generates a key for a vector entry by id.
func makeVectorKey(id string) []byte {
	return []byte(vectorEntryPrefix + ":" + id)
}

// makeCacheKey generates a key for a cache record by cache key.
func makeCacheKey(key string) []byte {
	return []byte(cacheRecordPrefix + ":" + key)
}

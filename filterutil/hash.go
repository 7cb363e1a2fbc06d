package filterutil

// FastHashBetween hashes str[begin:end] using djb2 (seed 5381, multiplier 33).
// The index structures in lookup and networkengine.go key their buckets on
// this hash, so it must stay stable across process restarts and across the
// shortcut substrings hashed at insertion time and the URL windows hashed at
// match time.
func FastHashBetween(str string, begin, end int) uint32 {
	hash := uint32(5381)
	for i := begin; i < end; i++ {
		hash = (hash * 33) ^ uint32(str[i])
	}
	return hash
}

// FastHash hashes the whole of str using the same djb2 variant as
// FastHashBetween.
func FastHash(str string) uint32 {
	if str == "" {
		return 0
	}
	return FastHashBetween(str, 0, len(str))
}

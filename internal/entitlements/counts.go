package entitlements

import "github.com/contactalia/contactalia-backend/pkg/enums"

// Counts tallies existing media per type and bucket.
type Counts map[enums.MediaType]map[Bucket]int

func (c Counts) Get(mediaType enums.MediaType, bucket Bucket) int {
	if c == nil {
		return 0
	}
	return c[mediaType][bucket]
}

// Add records n items of the given type and visibility.
func (c Counts) Add(mediaType enums.MediaType, v enums.MediaVisibility, n int) {
	byBucket, ok := c[mediaType]
	if !ok {
		byBucket = map[Bucket]int{}
		c[mediaType] = byBucket
	}
	byBucket[BucketFor(v)] += n
}

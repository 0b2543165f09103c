package transform

import (
	"math"
	"strconv"
	"strings"
)

// Bucket is the ordinal part-of-day category for a clock time.
type Bucket int64

const (
	Morning   Bucket = 1
	Afternoon Bucket = 2
	Evening   Bucket = 3
	Midnight  Bucket = 4
)

func (b Bucket) String() string {
	switch b {
	case Morning:
		return "Morning"
	case Afternoon:
		return "Afternoon"
	case Evening:
		return "Evening"
	case Midnight:
		return "Midnight"
	default:
		return "Unknown"
	}
}

// BucketOutcome records how a clock value reached its bucket. Midnight is
// reached both by OutOfRange and by Unparseable values.
type BucketOutcome int

const (
	InBin BucketOutcome = iota
	OutOfRange
	Unparseable
)

func (o BucketOutcome) String() string {
	switch o {
	case InBin:
		return "in_bin"
	case OutOfRange:
		return "out_of_range"
	default:
		return "unparseable"
	}
}

// bucketEdges are the HHMM cut points; bin i is (edges[i], edges[i+1]].
var bucketEdges = [...]float64{600, 1200, 1800, 2400}

var edgeBuckets = [...]Bucket{Morning, Afternoon, Evening}

// BucketTime assigns a clock time ("HH:MM" or "HHMM") to a part-of-day
// bucket. Bins exclude their lower edge and include their upper edge, so a
// value on a boundary belongs to the earlier bucket: 1200 is Morning and 2400
// is Evening. Anything outside (0600, 2400] or not a number falls into
// Midnight, including 0600 itself.
func BucketTime(clock string) (Bucket, BucketOutcome) {
	digits := strings.ReplaceAll(strings.TrimSpace(clock), ":", "")
	v, err := strconv.ParseFloat(digits, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Midnight, Unparseable
	}
	for i, bucket := range edgeBuckets {
		if v > bucketEdges[i] && v <= bucketEdges[i+1] {
			return bucket, InBin
		}
	}
	return Midnight, OutOfRange
}

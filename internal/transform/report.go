package transform

// BucketCounts tallies the outcomes of bucketing one time column.
type BucketCounts struct {
	InBin       int `json:"in_bin"`
	OutOfRange  int `json:"out_of_range"`
	Unparseable int `json:"unparseable"`
}

func (c *BucketCounts) add(o BucketOutcome) {
	switch o {
	case InBin:
		c.InBin++
	case OutOfRange:
		c.OutOfRange++
	default:
		c.Unparseable++
	}
}

// UnmappedSample is one value that passed through a remap unencoded.
type UnmappedSample struct {
	Column string `json:"column"`
	Row    int    `json:"row"`
	Value  string `json:"value"`
}

// maxUnmappedSamples bounds Report.Samples; Unmapped keeps the full counts.
const maxUnmappedSamples = 20

// Report describes what a transform run did beyond the table it produced:
// values that slipped through unencoded, how clock values were bucketed,
// and the encodings that were built.
type Report struct {
	Variant   string                  `json:"variant"`
	Rows      int                     `json:"rows"`
	Unmapped  map[string]int          `json:"unmapped,omitempty"`
	Samples   []UnmappedSample        `json:"unmapped_samples,omitempty"`
	Times     map[string]BucketCounts `json:"times,omitempty"`
	Encodings map[string][]LabelCode  `json:"encodings,omitempty"`
}

func newReport(variant string, rows int) *Report {
	return &Report{
		Variant:   variant,
		Rows:      rows,
		Unmapped:  make(map[string]int),
		Times:     make(map[string]BucketCounts),
		Encodings: make(map[string][]LabelCode),
	}
}

func (r *Report) recordUnmapped(column string, row int, value string) {
	r.Unmapped[column]++
	if len(r.Samples) < maxUnmappedSamples {
		r.Samples = append(r.Samples, UnmappedSample{Column: column, Row: row, Value: value})
	}
}

// UnmappedTotal returns the number of values that passed through unencoded.
func (r *Report) UnmappedTotal() int {
	total := 0
	for _, n := range r.Unmapped {
		total += n
	}
	return total
}

// UnparseableTimes returns the number of clock values that could not be read
// and were put in the Midnight bucket.
func (r *Report) UnparseableTimes() int {
	total := 0
	for _, c := range r.Times {
		total += c.Unparseable
	}
	return total
}

// Clean reports whether every value was encoded and every clock value parsed.
func (r *Report) Clean() bool {
	return r.UnmappedTotal() == 0 && r.UnparseableTimes() == 0
}

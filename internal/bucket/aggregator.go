// Package bucket groups message records by calendar day and persists the
// grouping as a JSON document.
package bucket

import (
	"sort"
	"time"

	"mailbucket/internal/model"
)

// UnknownDate is the key for records without a usable timestamp.
const UnknownDate = "Unknown Date"

// KeyLayout formats a bucket key, e.g. "Monday, 07 April 2025".
const KeyLayout = "Monday, 02 January 2006"

// parseLayout reads keys back; it also accepts a single-digit day.
const parseLayout = "Monday, 2 January 2006"

// KeyFor returns the bucket key of a timestamp in its own offset.
func KeyFor(ts *time.Time) string {
	if ts == nil {
		return UnknownDate
	}
	return ts.Format(KeyLayout)
}

// KeyDate re-derives the calendar date a key stands for. Keys that do not
// parse, UnknownDate included, map to the zero time so they sort as oldest.
func KeyDate(key string) time.Time {
	t, err := time.Parse(parseLayout, key)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Bucket is one calendar day and its records in fetch order.
type Bucket struct {
	Key     string
	Records []model.MessageRecord
}

// Aggregator collects records into day buckets. It is not safe for
// concurrent use.
type Aggregator struct {
	index   map[string]int
	buckets []Bucket
	count   int
}

func NewAggregator() *Aggregator {
	return &Aggregator{index: make(map[string]int)}
}

// Add appends rec to the bucket of its timestamp, creating the bucket on
// first use.
func (a *Aggregator) Add(rec model.MessageRecord) {
	key := KeyFor(rec.Date)
	i, ok := a.index[key]
	if !ok {
		i = len(a.buckets)
		a.index[key] = i
		a.buckets = append(a.buckets, Bucket{Key: key})
	}
	a.buckets[i].Records = append(a.buckets[i].Records, rec)
	a.count++
}

// Len reports how many records have been added.
func (a *Aggregator) Len() int { return a.count }

// Finalize returns the buckets ordered newest day first, by the date parsed
// back from each key. Days that compare equal keep their first-seen order.
func (a *Aggregator) Finalize() Result {
	out := make(Result, len(a.buckets))
	for i, b := range a.buckets {
		out[i] = Bucket{Key: b.Key, Records: append([]model.MessageRecord(nil), b.Records...)}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return KeyDate(out[i].Key).After(KeyDate(out[j].Key))
	})
	return out
}

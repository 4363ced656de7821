// Package report summarizes a results document: how many messages matching
// a subject phrase arrived per day, week, month, quarter and year, and who
// sent the most mail.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"mailbucket/internal/bucket"
	"mailbucket/internal/model"
	"mailbucket/internal/util"

	"github.com/samber/lo"
)

// DefaultPhrase matches LinkedIn "application sent" confirmations.
const DefaultPhrase = "your application was sent"

// MaxPoints is the most periods a series may have and still be chosen by
// Granularity.
const MaxPoints = 15

type Granularity string

const (
	Day     Granularity = "day"
	Week    Granularity = "week"
	Month   Granularity = "month"
	Quarter Granularity = "quarter"
	Year    Granularity = "year"
)

var granularities = []Granularity{Day, Week, Month, Quarter, Year}

// Point is the count of one period.
type Point struct {
	Label string
	Start time.Time
	Count int
}

// Counts holds the matching-message series for every granularity, each
// sorted oldest first.
type Counts struct {
	Phrase  string
	Total   int
	Undated int
	Series  map[Granularity][]Point
}

// CountPhrase counts records whose subject contains phrase, case-insensitive.
// Buckets whose key is not a date are counted in Undated only.
func CountPhrase(r bucket.Result, phrase string) Counts {
	needle := strings.ToLower(phrase)
	c := Counts{Phrase: phrase, Series: map[Granularity][]Point{}}
	perPeriod := map[Granularity]map[time.Time]*Point{}
	for _, g := range granularities {
		perPeriod[g] = map[time.Time]*Point{}
	}

	for _, b := range r {
		n := lo.CountBy(b.Records, func(rec model.MessageRecord) bool {
			return strings.Contains(strings.ToLower(rec.Subject), needle)
		})
		if n == 0 {
			continue
		}
		c.Total += n
		day := bucket.KeyDate(b.Key)
		if day.IsZero() {
			c.Undated += n
			continue
		}
		for _, g := range granularities {
			start, label := period(g, day)
			p, ok := perPeriod[g][start]
			if !ok {
				p = &Point{Label: label, Start: start}
				perPeriod[g][start] = p
			}
			p.Count += n
		}
	}

	for _, g := range granularities {
		pts := lo.MapToSlice(perPeriod[g], func(_ time.Time, p *Point) Point { return *p })
		sort.Slice(pts, func(i, j int) bool { return pts[i].Start.Before(pts[j].Start) })
		c.Series[g] = pts
	}
	return c
}

func period(g Granularity, day time.Time) (time.Time, string) {
	switch g {
	case Week:
		offset := (int(day.Weekday()) + 6) % 7 // Monday starts the week
		start := day.AddDate(0, 0, -offset)
		return start, "Week of " + start.Format("02 Jan 2006")
	case Month:
		start := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.Format("January 2006")
	case Quarter:
		q := (int(day.Month())-1)/3 + 1
		start := time.Date(day.Year(), time.Month(3*(q-1)+1), 1, 0, 0, 0, 0, time.UTC)
		return start, fmt.Sprintf("Q%d %d", q, day.Year())
	case Year:
		start := time.Date(day.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
		return start, start.Format("2006")
	default:
		return day, day.Format("02 Jan 2006")
	}
}

// Granularity picks the finest series with at most max points. ok is false
// when even the yearly series is longer.
func (c Counts) Granularity(max int) (Granularity, bool) {
	for _, g := range granularities {
		if len(c.Series[g]) <= max {
			return g, true
		}
	}
	return "", false
}

// SenderCount is how many messages a normalized sender address sent.
type SenderCount struct {
	Sender string
	Count  int
}

// TopSenders ranks senders by message count, ties broken by address. Headers
// that hold no parsable address are ignored. n <= 0 returns every sender.
func TopSenders(r bucket.Result, n int) []SenderCount {
	return rank(r, n, util.NormalizeSender)
}

// TopSenderDomains ranks the domains of sender addresses the same way.
func TopSenderDomains(r bucket.Result, n int) []SenderCount {
	return rank(r, n, util.SenderDomain)
}

func rank(r bucket.Result, n int, key func(from string) string) []SenderCount {
	records := lo.FlatMap(r, func(b bucket.Bucket, _ int) []model.MessageRecord { return b.Records })
	senders := lo.Filter(lo.Map(records, func(rec model.MessageRecord, _ int) string {
		return key(rec.From)
	}), func(s string, _ int) bool { return s != "" })

	counts := lo.MapToSlice(lo.CountValues(senders), func(s string, c int) SenderCount {
		return SenderCount{Sender: s, Count: c}
	})
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Sender < counts[j].Sender
	})
	if n > 0 && len(counts) > n {
		counts = counts[:n]
	}
	return counts
}

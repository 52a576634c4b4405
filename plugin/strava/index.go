package strava

import (
	"fmt"
	"sort"
	"time"
)

// DateKey formats a timestamp as the calendar date key used by the index.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// BuildIndex groups condensed records by calendar date and rebuilds the year
// rollups from scratch. Rebuilding on every fetch keeps the rollups trivially
// consistent with the record set.
func BuildIndex(records []*ActivityRecord) *ActivityIndex {
	index := &ActivityIndex{
		ByDate: make(map[string][]*ActivityRecord),
		ByYear: make(map[int]*YearRollup),
	}

	for _, record := range records {
		if record.Date == "" {
			record.Date = DateKey(record.StartTime)
		}
		index.ByDate[record.Date] = append(index.ByDate[record.Date], record)

		year := record.StartTime.Year()
		rollup, ok := index.ByYear[year]
		if !ok {
			rollup = &YearRollup{
				ByType:  make(map[string]*TypeRollup),
				ByMonth: make(map[string]*MonthRollup),
			}
			index.ByYear[year] = rollup
		}

		rollup.TotalActivities++
		rollup.TotalDistanceMiles += record.DistanceMiles
		rollup.TotalElevationFeet += record.ElevationFeet
		rollup.TotalMovingTimeSec += record.MovingTimeSec

		typeRollup, ok := rollup.ByType[record.Type]
		if !ok {
			typeRollup = &TypeRollup{}
			rollup.ByType[record.Type] = typeRollup
		}
		typeRollup.Count++
		typeRollup.DistanceMiles += record.DistanceMiles

		monthKey := fmt.Sprintf("%02d", int(record.StartTime.Month()))
		monthRollup, ok := rollup.ByMonth[monthKey]
		if !ok {
			monthRollup = &MonthRollup{}
			rollup.ByMonth[monthKey] = monthRollup
		}
		monthRollup.Activities++
		monthRollup.DistanceMiles += record.DistanceMiles
	}

	return index
}

// TotalCount returns the number of records across all dates.
func (x *ActivityIndex) TotalCount() int {
	count := 0
	for _, records := range x.ByDate {
		count += len(records)
	}
	return count
}

// sortedDates returns the index's date keys in ascending order. Walking dates
// in a fixed order keeps every derived listing deterministic.
func (x *ActivityIndex) sortedDates() []string {
	dates := make([]string, 0, len(x.ByDate))
	for dateKey := range x.ByDate {
		dates = append(dates, dateKey)
	}
	sort.Strings(dates)
	return dates
}

// AllRecords returns every record across all dates, oldest date first.
func (x *ActivityIndex) AllRecords() []*ActivityRecord {
	all := make([]*ActivityRecord, 0, x.TotalCount())
	for _, dateKey := range x.sortedDates() {
		all = append(all, x.ByDate[dateKey]...)
	}
	return all
}

// RecordsInRange returns records whose date key falls within [start, end]
// inclusive, oldest date first. The comparison happens on calendar date keys,
// not instants, so the boundaries hold in whatever zone the range was built.
func (x *ActivityIndex) RecordsInRange(start, end time.Time) []*ActivityRecord {
	startKey := DateKey(start)
	endKey := DateKey(end)

	filtered := []*ActivityRecord{}
	for _, dateKey := range x.sortedDates() {
		if dateKey < startKey || dateKey > endKey {
			continue
		}
		filtered = append(filtered, x.ByDate[dateKey]...)
	}
	return filtered
}

// RecordsOnDate returns the records for a single date key.
func (x *ActivityIndex) RecordsOnDate(dateKey string) []*ActivityRecord {
	return x.ByDate[dateKey]
}

// RecentRecords returns the union of records from the most recent n distinct
// calendar dates present in the index.
func (x *ActivityIndex) RecentRecords(days int) []*ActivityRecord {
	dates := make([]string, 0, len(x.ByDate))
	for dateKey := range x.ByDate {
		dates = append(dates, dateKey)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	if days > len(dates) {
		days = len(dates)
	}

	recent := []*ActivityRecord{}
	for _, dateKey := range dates[:days] {
		recent = append(recent, x.ByDate[dateKey]...)
	}
	return recent
}

// ReplaceRecord swaps the record with the given id on the given date for an
// enriched copy. Enrichment is the only writer of indexed records; replacing
// the slot keeps readers of the old value consistent.
func (x *ActivityIndex) ReplaceRecord(dateKey string, enriched *ActivityRecord) bool {
	for i, record := range x.ByDate[dateKey] {
		if record.ID == enriched.ID {
			x.ByDate[dateKey][i] = enriched
			return true
		}
	}
	return false
}

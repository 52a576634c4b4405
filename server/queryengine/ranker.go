package queryengine

import (
	"sort"
	"strings"

	"github.com/hrygo/stridesense/plugin/strava"
)

// rankerStopWords are query words too common to discriminate between
// activities. Note that activity-type words like "run" and "ride" are stop
// words here: nearly every record of that type would match them.
var rankerStopWords = map[string]struct{}{
	"what": {}, "was": {}, "the": {}, "list": {}, "all": {}, "segments": {},
	"from": {}, "at": {}, "in": {}, "on": {}, "my": {}, "run": {}, "ride": {},
}

const wordMatchScore = 10

// RelevanceScore counts query-word hits against a record's text fields.
// Matching is case-insensitive substring containment over the concatenated
// name, private note and description.
func RelevanceScore(question string, record *strava.ActivityRecord) int {
	blob := strings.ToLower(record.Name + " " + record.PrivateNote + " " + record.Description)

	score := 0
	for _, word := range strings.Fields(strings.ToLower(question)) {
		if _, stop := rankerStopWords[word]; stop {
			continue
		}
		if strings.Contains(blob, word) {
			score += wordMatchScore
		}
	}
	return score
}

// RankByRelevance orders records by descending relevance to the question,
// breaking ties by recency. The sort is stable so equal records keep their
// input order. The input slice is not modified.
func RankByRelevance(question string, records []*strava.ActivityRecord) []*strava.ActivityRecord {
	type scored struct {
		record *strava.ActivityRecord
		score  int
	}

	ranked := make([]scored, len(records))
	for i, record := range records {
		ranked[i] = scored{record: record, score: RelevanceScore(question, record)}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].record.StartTime.After(ranked[j].record.StartTime)
	})

	out := make([]*strava.ActivityRecord, len(ranked))
	for i, s := range ranked {
		out[i] = s.record
	}
	return out
}

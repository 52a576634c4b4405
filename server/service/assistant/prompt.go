package assistant

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hrygo/stridesense/server/queryengine"
)

// systemInstruction is static so providers can cache it across questions.
const systemInstruction = `You are a helpful assistant analyzing Strava fitness data.

IMPORTANT INSTRUCTIONS:
- **DATA FIELDS**: The activity data provided uses specific field names:
  - ` + "`distance_miles`" + `: Distance of the activity in miles.
  - ` + "`elevation_feet`" + `: Elevation gain in feet.
  - ` + "`moving_time_seconds`" + `: Moving time in seconds (convert to hours/minutes for display, e.g. "4h 30m").
  - ` + "`elapsed_time_seconds`" + `: Total elapsed time in seconds.
  - ` + "`type`" + `: Activity type (e.g., Run, Ride, TrailRun).
  - ` + "`name`" + `: Name of the activity.
  - ` + "`date`" + `: Date of the activity (YYYY-MM-DD).
  - ` + "`segments`" + `: List of segments. Times are pre-formatted as Minutes:Seconds (e.g., "12:30").

- **LINKING & FORMATTING**:
  - Start each activity with its name as a Heading 3 link: ` + "`### [Activity Name](https://www.strava.com/activities/{id})`" + `
  - Follow with a bulleted list for stats: Distance, Elevation, Moving Time.
  - If listing segments, use a Heading 4 ` + "`#### Top Segments`" + ` and link each one:
    ` + "`- [Segment Name](https://www.strava.com/segments/{id}) - {elapsed_time}`" + `

- **COMPARISONS**: When comparing years, only compare matching time periods.
- **SEARCHING**: If the user asks for a specific edition of an event (e.g. "16th running"), check the ` + "`description`" + ` and ` + "`private_note`" + ` fields. The edition number is often mentioned there.
- **CALCULATIONS**: You are a data analyst. If the user asks for aggregates (e.g., "weekly mileage") and you have a list of activities, YOU MUST CALCULATE the aggregates yourself by summing the relevant fields for the requested time periods. Do not say data is missing if you have the list of activities.
- **SUMMARIES**: Use summary_by_year for aggregate queries when detailed activities aren't provided.
- **TONE**: Provide concise and encouraging responses.`

// promptContext is the JSON document handed to the model: the optimized
// context plus any segment blocks.
type promptContext struct {
	*queryengine.OptimizedContext
	MentionedSegments []*MentionedSegment `json:"mentioned_segments,omitempty"`
}

// buildPrompt assembles the user prompt for one question.
func buildPrompt(question string, optimized *queryengine.OptimizedContext, mentioned []*MentionedSegment) string {
	contextJSON, err := json.MarshalIndent(&promptContext{
		OptimizedContext:  optimized,
		MentionedSegments: mentioned,
	}, "", "  ")
	if err != nil {
		contextJSON = []byte("{}")
	}

	return fmt.Sprintf(`=== USER QUESTION ===
%s
=== END USER QUESTION ===

=== DATA ===
%s
=== END DATA ===

Answer the user's question based on this data. If the answer cannot be determined from the data, say so.`, question, string(contextJSON))
}

// hashPrompt keys the answer cache by the full prompt content.
func hashPrompt(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}

// DetermineQueryType classifies a question for model selection hints.
func DetermineQueryType(question string) string {
	questionLower := strings.ToLower(question)

	switch {
	case containsAnyWord(questionLower, []string{"total", "sum", "average", "how many", "how much", "count"}):
		return "aggregate"
	case containsAnyWord(questionLower, []string{"compare", "vs", "versus", "difference", "better", "worse"}):
		return "comparison"
	case containsAnyWord(questionLower, []string{"analyze", "trend", "pattern", "why", "reason"}):
		return "analysis"
	default:
		return "general"
	}
}

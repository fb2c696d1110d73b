// Package slots tracks the required intake fields for a project. It is the
// single source of truth for whether intake is complete.
package slots

// Required fields, in the priority order used to pick the next question.
const (
	FieldTitle        = "title"
	FieldDescription  = "description"
	FieldLocationCode = "location_code"
	FieldBudgetRange  = "budget_range"
	FieldTimeline     = "timeline"
)

// Required is the fixed required-field set in priority order.
var Required = []string{
	FieldTitle,
	FieldDescription,
	FieldLocationCode,
	FieldBudgetRange,
	FieldTimeline,
}

var questions = map[string]string{
	FieldTitle:        "What would you like to name this project?",
	FieldDescription:  "Could you describe the project in a bit more detail? What exactly needs to be done?",
	FieldLocationCode: "What's the zip code for the project location?",
	FieldBudgetRange:  "What is your estimated budget range for this project? For example, $500-$1000.",
	FieldTimeline:     "What is your desired timeline for completing this project?",
}

// IsComplete reports whether every required field is present and non-empty.
func IsComplete(s map[string]string) bool {
	for _, field := range Required {
		if s[field] == "" {
			return false
		}
	}
	return true
}

// Missing returns the unmet required fields in priority order.
func Missing(s map[string]string) []string {
	var out []string
	for _, field := range Required {
		if s[field] == "" {
			out = append(out, field)
		}
	}
	return out
}

// Merge copies non-empty values from src into dst and returns dst.
// A nil dst is allocated. Empty src values never erase captured ones.
func Merge(dst, src map[string]string) map[string]string {
	if dst == nil {
		dst = make(map[string]string, len(Required))
	}
	for k, v := range src {
		if v != "" {
			dst[k] = v
		}
	}
	return dst
}

// Question returns the intake question for a required field.
func Question(field string) string {
	if q, ok := questions[field]; ok {
		return q
	}
	return "Could you tell me more about your project?"
}

package orchestrator

import (
	"fmt"
	"strings"

	"github.com/homequote/intake/internal/domain"
	"github.com/homequote/intake/internal/slots"
)

// systemPrompt guides the model through the intake flow. Control flow
// never depends on the model's prose; the prompt only shapes which typed
// outputs it produces.
const systemPrompt = `You are the intake assistant for HomeQuote. You help homeowners
define a home improvement or repair project, gather the required details,
and create the project record and its bid card.

Required intake fields: title, description, location_code, budget_range,
timeline. Report every field value you extract from the user's message
with the update_slots function. Ask for one missing field at a time, in
the order listed above.

Rules:
- Never call create_project until every field is captured AND the user
  has explicitly confirmed the summary you presented.
- Use get_preference (key "default_budget") to pre-fill the budget only
  when the user has not stated one.
- Offer set_preference only when the user asks to save a value.
- Use analyze_image when the user mentions an uploaded photo.
- If a function result reports an error, tell the user plainly and do not
  retry it in the same turn.
- Be friendly, clear, and concise.`

// statusLine summarizes machine state for the model at each turn.
func statusLine(session *domain.Session) string {
	var b strings.Builder
	fmt.Fprintf(&b, "phase=%s", session.Phase)

	missing := slots.Missing(session.Slots)
	if len(missing) == 0 {
		b.WriteString("; all intake fields captured")
	} else {
		fmt.Fprintf(&b, "; missing fields: %s", strings.Join(missing, ", "))
	}
	for _, field := range slots.Required {
		if v := session.Slots[field]; v != "" {
			fmt.Fprintf(&b, "; %s=%q", field, v)
		}
	}
	if session.ProjectID != "" {
		fmt.Fprintf(&b, "; project_id=%s", session.ProjectID)
	}
	if session.BidCardID != "" {
		fmt.Fprintf(&b, "; bid_card_id=%s", session.BidCardID)
	}
	if session.Vision != nil {
		fmt.Fprintf(&b, "; image analyzed with %d labels", len(session.Vision.Labels))
	} else if session.ImageRef != "" {
		b.WriteString("; image uploaded, not yet analyzed")
	}
	return b.String()
}

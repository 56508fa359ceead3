package assistant

import "github.com/dshills/threadgraph/graph"

// Canned replies.
const (
	ClarificationReply = "I'm not sure which company you're referring to. Could you please specify the company name?"
	NoSummaryReply     = "Process completed but no summary generated."
)

// Reply selects the answer shown to the user for a finished turn.
func Reply(s graph.State) string {
	if s.String(FieldClarityStatus) == StatusNeedsClarification {
		return ClarificationReply
	}
	if summary := s.String(FieldSummary); summary != "" {
		return summary
	}
	return NoSummaryReply
}

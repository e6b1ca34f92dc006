package protocol

import "fmt"

// Role identifies the author of a conversation turn.
type Role string

const (
	// RoleController authors reasoning plus exactly one action.
	RoleController Role = "controller"

	// RoleEnvironment authors exactly one tool result.
	RoleEnvironment Role = "environment"
)

// FinalAnswer is the terminal action of a conversation: the narrative plus
// its side channels. Sources must be non-empty and deduplicated; confidence
// defaults to medium.
type FinalAnswer struct {
	Narrative   string   `json:"narrative"`
	Sources     []string `json:"sources"`
	Confidence  string   `json:"confidence"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// Turn is one ordered unit of interaction. A controller turn carries
// reasoning and exactly one of {Request, Answer}; an environment turn
// carries exactly one Result. The constructors below are the only way the
// rest of the system builds turns, so an invariant breach surfaces as an
// error at construction time rather than a malformed transcript.
type Turn struct {
	Index     int          `json:"index"`
	Role      Role         `json:"role"`
	Reasoning string       `json:"reasoning,omitempty"`
	Request   *ToolRequest `json:"request,omitempty"`
	Answer    *FinalAnswer `json:"answer,omitempty"`
	Result    *ToolResult  `json:"result,omitempty"`
}

// NewControllerTurn builds a controller turn, enforcing the single-action
// invariant: exactly one of req and ans, never both, never neither, and no
// tool block smuggled inside the reasoning text.
func NewControllerTurn(index int, reasoning string, req *ToolRequest, ans *FinalAnswer) (Turn, error) {
	if req != nil && ans != nil {
		return Turn{}, fmt.Errorf("%w: turn %d carries both a tool request and a final answer", ErrProtocolViolation, index)
	}
	if req == nil && ans == nil {
		return Turn{}, fmt.Errorf("%w: turn %d carries neither a tool request nor a final answer", ErrProtocolViolation, index)
	}
	if containsActionBlock(reasoning) {
		return Turn{}, fmt.Errorf("%w: turn %d reasoning embeds a tool request", ErrProtocolViolation, index)
	}
	return Turn{
		Index:     index,
		Role:      RoleController,
		Reasoning: reasoning,
		Request:   req,
		Answer:    ans,
	}, nil
}

// NewEnvironmentTurn builds an environment turn carrying one tool result.
func NewEnvironmentTurn(index int, res *ToolResult) (Turn, error) {
	if res == nil {
		return Turn{}, fmt.Errorf("%w: environment turn %d without a tool result", ErrProtocolViolation, index)
	}
	return Turn{
		Index:  index,
		Role:   RoleEnvironment,
		Result: res,
	}, nil
}

// IsTerminal reports whether this turn ends the query.
func (t Turn) IsTerminal() bool {
	return t.Answer != nil
}

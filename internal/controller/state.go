package controller

import "fmt"

// State is the conversation controller's lifecycle state for one query.
type State string

const (
	// StateAwaitingQuery means no query is being processed.
	StateAwaitingQuery State = "AWAITING_QUERY"

	// StateReasoning means the controller is deciding its next action.
	StateReasoning State = "REASONING"

	// StateToolPending means exactly one tool request is outstanding.
	StateToolPending State = "TOOL_PENDING"

	// StateAnswering means the controller is composing the final answer.
	StateAnswering State = "ANSWERING"

	// StateDone means the query ended with an answer. Terminal per query.
	StateDone State = "DONE"
)

// transitions is the legal state graph. Every tool result, including empty
// and error results, routes back to REASONING; only an answer reaches DONE.
var transitions = map[State][]State{
	StateAwaitingQuery: {StateReasoning},
	StateReasoning:     {StateToolPending, StateAnswering},
	StateToolPending:   {StateReasoning},
	StateAnswering:     {StateDone},
	StateDone:          {StateAwaitingQuery},
}

// transition moves the session to next, rejecting illegal moves so a
// planner bug surfaces immediately instead of corrupting the transcript.
func (s *Session) transition(next State) error {
	for _, allowed := range transitions[s.state] {
		if allowed == next {
			s.state = next
			return nil
		}
	}
	return fmt.Errorf("illegal state transition %s -> %s", s.state, next)
}

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

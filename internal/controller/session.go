// Package controller runs the conversation: a single-actor state machine
// that turns a user query into a bounded sequence of one-tool-per-turn
// retrieval invocations and ends in exactly one answer. The planner is
// deterministic: route the query, expand it through the glossary, switch
// strategy on empty results, navigate oversized documents through their
// structure, and give up honestly when the retry budget is spent.
package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"docscout/internal/answer"
	"docscout/internal/backend"
	"docscout/internal/config"
	"docscout/internal/document"
	"docscout/internal/glossary"
	"docscout/internal/logging"
	"docscout/internal/protocol"
	"docscout/internal/router"
)

// Session is one conversation against the knowledge base. It owns the
// turn history, the per-session structure cache, and the transcript.
// Not safe for concurrent use; one query is processed at a time.
type Session struct {
	id         string
	cfg        *config.Config
	backend    backend.SearchBackend
	glossary   *glossary.Glossary
	structures *document.StructureCache
	synth      *answer.Synthesizer
	transcript *Transcript

	state State
	turns []protocol.Turn

	// issued holds fingerprints of every request sent this session, so an
	// identical invocation is never repeated.
	issued map[string]struct{}
}

// New creates a session over the given backend and glossary.
func New(cfg *config.Config, be backend.SearchBackend, gl *glossary.Glossary) (*Session, error) {
	structures, err := document.NewStructureCache(cfg.Session.StructureCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create structure cache: %w", err)
	}

	s := &Session{
		id:         uuid.NewString(),
		cfg:        cfg,
		backend:    be,
		glossary:   gl,
		structures: structures,
		synth:      answer.NewSynthesizer(),
		state:      StateAwaitingQuery,
		issued:     make(map[string]struct{}),
	}

	if dir := cfg.Session.TranscriptDir; dir != "" {
		t, err := OpenTranscript(dir, s.id)
		if err != nil {
			return nil, err
		}
		s.transcript = t
	}

	logging.Session("Session %s started", s.id)
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Turns returns the accumulated turn history.
func (s *Session) Turns() []protocol.Turn { return s.turns }

// Close releases session resources: the structure cache and the transcript.
func (s *Session) Close() error {
	s.structures.Purge()
	logging.Session("Session %s closed after %d turns", s.id, len(s.turns))
	return s.transcript.Close()
}

// plan is the controller's working state for one query.
type plan struct {
	query    string // expanded query
	decision router.Decision

	// attempted marks search strategies already spent on this query.
	attempted map[protocol.Kind]bool

	// attempts logs every invocation for the "not found" answer.
	attempts []answer.Attempt

	// structure is set after a progressive fetch: the next action drills
	// into it instead of re-fetching the whole document.
	structure *document.Structure

	// corroborate names a hit path to fetch for direct evidence.
	corroborate string

	futile int
}

// Ask processes one query to completion and returns its answer record.
// Every query ends in exactly one answer, even when retrieval fails.
func (s *Session) Ask(ctx context.Context, query string) (*answer.Record, error) {
	if s.state == StateDone {
		if err := s.transition(StateAwaitingQuery); err != nil {
			return nil, err
		}
	}
	if s.state != StateAwaitingQuery {
		return nil, fmt.Errorf("session %s is mid-query (state %s)", s.id, s.state)
	}
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("empty query")
	}
	if err := s.transition(StateReasoning); err != nil {
		return nil, err
	}
	logging.Session("Processing query (%d chars)", len(query))

	// A definition question over a known acronym is answered from the
	// dictionary without touching the backend.
	if direct, ok := s.glossary.LookupAcronym(query); ok {
		narrative := fmt.Sprintf("%s stands for %s.", direct.Acronym, direct.Expansion)
		if direct.Definition != "" {
			narrative += " " + direct.Definition
		}
		record := s.synth.Direct(query, narrative, glossary.AcronymSource)
		reason := fmt.Sprintf("The query asks for the meaning of %s, which the acronym dictionary defines. No retrieval needed.", direct.Acronym)
		if err := s.finish(reason, record); err != nil {
			return nil, err
		}
		return record, nil
	}

	expanded := s.glossary.Expand(query)
	if expanded != query {
		logging.SessionDebug("Expanded query: %s", expanded)
	}

	p := &plan{
		query:     expanded,
		decision:  router.Select(expanded),
		attempted: make(map[protocol.Kind]bool),
	}
	ev := answer.NewEvidence()

	record, reason, err := s.retrieve(ctx, query, p, ev)
	if err != nil {
		return nil, err
	}
	if err := s.finish(reason, record); err != nil {
		return nil, err
	}
	return record, nil
}

// retrieve runs the tool loop until the evidence is sufficient or the
// budget is spent, and returns the answer record plus the closing reasoning.
func (s *Session) retrieve(ctx context.Context, query string, p *plan, ev *answer.Evidence) (*answer.Record, string, error) {
	turnBudget := s.cfg.Session.MaxTurns

	for spent := 0; spent < turnBudget; spent++ {
		req, reasoning := s.nextRequest(p)
		if req == nil {
			break
		}

		// An identical invocation is never repeated; exhaust the strategy
		// instead.
		if _, dup := s.issued[req.Fingerprint()]; dup {
			logging.SessionDebug("Refusing repeat of %s", req.Fingerprint())
			if !s.switchStrategy(p) {
				break
			}
			continue
		}

		res, err := s.invoke(ctx, req, reasoning)
		if err != nil {
			return nil, "", err
		}
		ev.ObserveResult(res)
		p.attempts = append(p.attempts, answer.Attempt{Kind: req.Kind, Query: attemptTarget(req)})

		done := s.evaluate(p, ev, req, res)
		if done {
			break
		}
		if p.futile >= s.cfg.Session.MaxFutileTurns {
			logging.Session("Retry budget exhausted after %d futile turns", p.futile)
			break
		}
	}

	if len(ev.Items()) > 0 {
		record, err := s.synth.Synthesize(query, ev)
		if err != nil {
			return nil, "", err
		}
		reason := fmt.Sprintf("Evidence from %d source(s) answers the question; composing the final answer.", len(record.Sources))
		return record, reason, nil
	}

	record := s.synth.NotFound(query, p.attempts)
	reason := fmt.Sprintf("All %d strategies produced nothing usable; reporting what was attempted instead of guessing.", len(p.attempts))
	return record, reason, nil
}

// nextRequest builds the next tool request from the plan. A nil request
// means the planner has nothing left to try.
func (s *Session) nextRequest(p *plan) (*protocol.ToolRequest, string) {
	// Drill into a pending structure before anything else. The full
	// document is never re-fetched once its structure is known.
	if st := p.structure; st != nil {
		p.structure = nil
		address := "chunk_1"
		why := "no section title matches, reading the first chunk"
		if sec, ok := st.SelectSection(p.query); ok {
			address = sec.ID
			why = fmt.Sprintf("section %q best matches the query", sec.Title)
		}
		req := protocol.NewToolRequest(protocol.KindFetchSection, map[string]string{
			"file_path":  st.DocPath,
			"section_id": address,
		})
		return req, fmt.Sprintf("%s returned its structure instead of content; %s.", st.DocPath, why)
	}

	// Fetch a hit's document for direct evidence, unless its structure is
	// already cached (then the hits themselves must carry the answer).
	if path := p.corroborate; path != "" {
		p.corroborate = ""
		if !s.structures.Has(path) {
			req := protocol.NewToolRequest(protocol.KindFetchFile, map[string]string{"file_path": path})
			return req, fmt.Sprintf("Fetching %s to read the matched content directly.", path)
		}
	}

	if p.attempted[p.decision.Kind] {
		return nil, ""
	}

	d := p.decision
	var req *protocol.ToolRequest
	switch d.Kind {
	case protocol.KindFetchFile:
		req = protocol.NewToolRequest(d.Kind, map[string]string{"file_path": d.Target})
	case protocol.KindLexicalSearch:
		req = protocol.NewToolRequest(d.Kind, map[string]string{"query": p.query})
	case protocol.KindSemanticSearch:
		req = protocol.NewToolRequest(d.Kind, map[string]string{"query": p.query})
	case protocol.KindPatternSearch:
		req = protocol.NewToolRequest(d.Kind, map[string]string{"pattern": d.Target})
	default:
		return nil, ""
	}
	return req, fmt.Sprintf("Strategy %s: %s.", d.Kind, d.Reason)
}

// invoke validates and executes one request, recording both turns. A
// validation or transport failure becomes a synthetic error result so the
// loop can self-correct; only infrastructure faults (transcript, invariant
// breaches) surface as errors.
func (s *Session) invoke(ctx context.Context, req *protocol.ToolRequest, reasoning string) (*protocol.ToolResult, error) {
	turn, err := protocol.NewControllerTurn(len(s.turns), reasoning, req, nil)
	if err != nil {
		return nil, err
	}
	if err := s.addTurn(turn); err != nil {
		return nil, err
	}
	if err := s.transition(StateToolPending); err != nil {
		return nil, err
	}
	s.issued[req.Fingerprint()] = struct{}{}

	var res *protocol.ToolResult
	if verr := req.Validate(); verr != nil {
		logging.Protocol("Request %s rejected: %v", req.Kind, verr)
		res = protocol.NewValidationResult(req, verr)
	} else {
		logging.SessionDebug("Dispatching %s (id=%s)", req.Kind, req.ID)
		r, err := s.backend.Execute(ctx, req)
		if err != nil {
			logging.Backend("%s failed: %v", req.Kind, err)
			res = protocol.NewBackendFailure(req, err)
		} else {
			res = r
		}
	}

	envTurn, err := protocol.NewEnvironmentTurn(len(s.turns), res)
	if err != nil {
		return nil, err
	}
	if err := s.addTurn(envTurn); err != nil {
		return nil, err
	}
	if err := s.transition(StateReasoning); err != nil {
		return nil, err
	}
	return res, nil
}

// evaluate folds one result into the plan and the evidence. Returns true
// when the evidence is sufficient to answer.
func (s *Session) evaluate(p *plan, ev *answer.Evidence, req *protocol.ToolRequest, res *protocol.ToolResult) bool {
	switch {
	case res.Progressive && res.Structure != nil:
		s.structures.Put(res.Structure)
		st, _ := s.structures.Get(res.Structure.DocPath)
		p.structure = st
		p.futile = 0
		return false

	case res.Productive() && res.Content != nil:
		text := res.Content.Text
		if len(text) > 400 {
			text = text[:400]
		}
		ev.Add(answer.Item{
			Source:   res.Content.Path,
			Snippet:  strings.TrimSpace(text),
			Score:    1.0,
			Strategy: req.Kind,
		})
		p.futile = 0
		return true

	case res.Productive() && len(res.Hits) > 0:
		for i, h := range res.Hits {
			if i >= 3 {
				break
			}
			ev.Add(answer.Item{Source: h.Path, Snippet: h.Snippet, Score: h.Score, Strategy: req.Kind})
		}
		p.futile = 0
		if len(ev.Sources()) >= 2 {
			return true
		}
		// One source so far; fetch it for direct evidence before answering.
		p.corroborate = res.Hits[0].Path
		return false

	default:
		// Empty or failed. Both consume the retry budget; the next attempt
		// must differ, so switch strategy.
		p.futile++
		if !s.switchStrategy(p) {
			return true
		}
		return false
	}
}

// switchStrategy marks the current strategy spent and moves to the next
// untried one. Returns false when every strategy is exhausted.
func (s *Session) switchStrategy(p *plan) bool {
	p.attempted[p.decision.Kind] = true
	next, ok := router.NextFallback(p.decision.Kind, func(k protocol.Kind) bool { return p.attempted[k] })
	if !ok {
		return false
	}
	logging.Session("Switching strategy %s -> %s", p.decision.Kind, next)
	p.decision = router.Decision{Kind: next, Target: p.query, Reason: "previous strategy produced nothing"}
	return true
}

// finish emits the answering turn and moves the session to DONE.
func (s *Session) finish(reasoning string, record *answer.Record) error {
	if err := s.transition(StateAnswering); err != nil {
		return err
	}

	fa := record.WireAnswer()
	if err := fa.Validate(); err != nil {
		return err
	}
	turn, err := protocol.NewControllerTurn(len(s.turns), reasoning, nil, fa)
	if err != nil {
		return err
	}
	if err := s.addTurn(turn); err != nil {
		return err
	}
	if err := s.transition(StateDone); err != nil {
		return err
	}
	logging.Session("Query answered (confidence=%s, sources=%d)", record.Confidence, len(record.Sources))
	return nil
}

// attemptTarget extracts the human-meaningful argument of a request for
// the attempted-searches log.
func attemptTarget(req *protocol.ToolRequest) string {
	switch req.Kind {
	case protocol.KindFetchFile:
		return req.Param("file_path")
	case protocol.KindFetchSection:
		return req.Param("file_path") + "#" + req.Param("section_id")
	case protocol.KindPatternSearch:
		return req.Param("pattern")
	default:
		return req.Param("query")
	}
}

// addTurn appends a turn to the history and the transcript.
func (s *Session) addTurn(turn protocol.Turn) error {
	s.turns = append(s.turns, turn)
	if err := s.transcript.Record(turn); err != nil {
		return fmt.Errorf("failed to record turn %d: %w", turn.Index, err)
	}
	return nil
}

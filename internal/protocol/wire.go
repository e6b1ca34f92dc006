package protocol

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// The wire format is one well-formed tagged block per controller turn: the
// tag names the tool, child elements are named parameters. Text outside the
// block is the turn's reasoning. A terminal turn uses present_answer with
// the narrative in <answer> and the sources/confidence/suggestions side
// channels, each appearing exactly once.

var (
	blockPatterns = buildBlockPatterns()

	paramPattern      = regexp.MustCompile(`(?s)<([a-z_]+)>(.*?)</([a-z_]+)>`)
	sourceItemPattern = regexp.MustCompile(`(?s)<source>(.*?)</source>`)
	suggestionPattern = regexp.MustCompile(`(?s)<suggestion>(.*?)</suggestion>`)
)

func buildBlockPatterns() map[Kind]*regexp.Regexp {
	patterns := make(map[Kind]*regexp.Regexp, len(Kinds))
	for _, k := range Kinds {
		patterns[k] = regexp.MustCompile(fmt.Sprintf(`(?s)<%s>(.*?)</%s>`, k, k))
	}
	return patterns
}

type rawBlock struct {
	kind  Kind
	body  string
	start int
	end   int
}

// findBlocks locates every well-formed tool block in raw, in document order.
func findBlocks(raw string) []rawBlock {
	var blocks []rawBlock
	for _, k := range Kinds {
		for _, loc := range blockPatterns[k].FindAllStringSubmatchIndex(raw, -1) {
			blocks = append(blocks, rawBlock{
				kind:  k,
				body:  raw[loc[2]:loc[3]],
				start: loc[0],
				end:   loc[1],
			})
		}
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].start < blocks[j].start })
	return blocks
}

// containsActionBlock reports whether text carries a well-formed tool block.
func containsActionBlock(text string) bool {
	return len(findBlocks(text)) > 0
}

// ParseControllerTurn decodes one controller turn from its wire form.
// It enforces the turn invariants: exactly one action block, never a tool
// request alongside or after a final answer. The returned request carries a
// fresh correlation ID and still needs Validate before dispatch.
func ParseControllerTurn(raw string) (reasoning string, req *ToolRequest, ans *FinalAnswer, err error) {
	blocks := findBlocks(raw)
	switch {
	case len(blocks) == 0:
		return "", nil, nil, fmt.Errorf("%w: controller turn contains no action block", ErrProtocolViolation)
	case len(blocks) > 1:
		return "", nil, nil, fmt.Errorf("%w: controller turn contains %d action blocks (%s, %s, ...)",
			ErrProtocolViolation, len(blocks), blocks[0].kind, blocks[1].kind)
	}

	block := blocks[0]
	reasoning = strings.TrimSpace(raw[:block.start] + raw[block.end:])

	if block.kind == KindPresentAnswer {
		ans, err = parseFinalAnswer(block.body)
		return reasoning, nil, ans, err
	}

	params, err := parseParams(block.kind, block.body)
	if err != nil {
		return reasoning, nil, nil, err
	}
	return reasoning, NewToolRequest(block.kind, params), nil, nil
}

// parseParams extracts the flat named parameters of a retrieval block.
func parseParams(kind Kind, body string) (map[string]string, error) {
	params := make(map[string]string)
	for _, m := range paramPattern.FindAllStringSubmatch(body, -1) {
		name, value, closing := m[1], m[2], m[3]
		if name != closing {
			return nil, fmt.Errorf("%w: mismatched tags <%s>...</%s> in %s block",
				ErrProtocolViolation, name, closing, kind)
		}
		if _, dup := params[name]; dup {
			return nil, fmt.Errorf("%w: parameter %s appears twice in %s block",
				ErrProtocolViolation, name, kind)
		}
		params[name] = strings.TrimSpace(value)
	}
	return params, nil
}

// parseFinalAnswer decodes a present_answer block. The narrative and the
// sources channel must each appear exactly once; confidence and suggestions
// are optional but may not repeat.
func parseFinalAnswer(body string) (*FinalAnswer, error) {
	answerBlocks := extractChannel(body, "answer")
	sourcesBlocks := extractChannel(body, "sources")
	confidenceBlocks := extractChannel(body, "confidence")
	suggestionsBlocks := extractChannel(body, "suggestions")

	if len(answerBlocks) != 1 {
		return nil, fmt.Errorf("%w: present_answer needs exactly one <answer> channel, got %d",
			ErrProtocolViolation, len(answerBlocks))
	}
	if len(sourcesBlocks) != 1 {
		return nil, fmt.Errorf("%w: present_answer needs exactly one <sources> channel, got %d",
			ErrProtocolViolation, len(sourcesBlocks))
	}
	if len(confidenceBlocks) > 1 || len(suggestionsBlocks) > 1 {
		return nil, fmt.Errorf("%w: present_answer side channels may not repeat", ErrProtocolViolation)
	}

	ans := &FinalAnswer{
		Narrative: strings.TrimSpace(answerBlocks[0]),
		Sources:   parseItems(sourcesBlocks[0], sourceItemPattern),
	}
	if len(confidenceBlocks) == 1 {
		ans.Confidence = strings.TrimSpace(confidenceBlocks[0])
	}
	if len(suggestionsBlocks) == 1 {
		ans.Suggestions = parseItems(suggestionsBlocks[0], suggestionPattern)
	}

	if err := ans.Validate(); err != nil {
		return nil, err
	}
	return ans, nil
}

func extractChannel(body, tag string) []string {
	re := regexp.MustCompile(fmt.Sprintf(`(?s)<%s>(.*?)</%s>`, tag, tag))
	var out []string
	for _, m := range re.FindAllStringSubmatch(body, -1) {
		out = append(out, m[1])
	}
	return out
}

// parseItems reads <source>/<suggestion> children; bare newline-separated
// text is accepted as a fallback. Items are deduplicated in order.
func parseItems(body string, itemPattern *regexp.Regexp) []string {
	var raw []string
	if matches := itemPattern.FindAllStringSubmatch(body, -1); len(matches) > 0 {
		for _, m := range matches {
			raw = append(raw, m[1])
		}
	} else {
		raw = strings.Split(body, "\n")
	}

	var items []string
	seen := make(map[string]struct{})
	for _, item := range raw {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		items = append(items, item)
	}
	return items
}

// Validate checks the final answer channels: non-empty deduplicated sources
// and an in-domain confidence grade (defaulted to medium when unset).
func (a *FinalAnswer) Validate() error {
	if len(a.Sources) == 0 {
		return &ValidationError{Tool: KindPresentAnswer, Field: "sources", Reason: "at least one source is required"}
	}
	switch a.Confidence {
	case "":
		a.Confidence = ConfidenceMedium
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
	default:
		return &ValidationError{Tool: KindPresentAnswer, Field: "confidence", Value: a.Confidence,
			Reason: "value outside allowed domain high|medium|low"}
	}
	return nil
}

// EncodeRequest renders a tool request to its wire form.
func EncodeRequest(req *ToolRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<%s>\n", req.Kind)

	names := make([]string, 0, len(req.Params))
	for name := range req.Params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if req.Params[name] == "" {
			continue
		}
		fmt.Fprintf(&b, "  <%s>%s</%s>\n", name, req.Params[name], name)
	}

	fmt.Fprintf(&b, "</%s>", req.Kind)
	return b.String()
}

// EncodeAnswer renders a final answer to its wire form.
func EncodeAnswer(ans *FinalAnswer) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<%s>\n", KindPresentAnswer)
	fmt.Fprintf(&b, "  <answer>%s</answer>\n", ans.Narrative)

	b.WriteString("  <sources>\n")
	for _, src := range ans.Sources {
		fmt.Fprintf(&b, "    <source>%s</source>\n", src)
	}
	b.WriteString("  </sources>\n")

	if ans.Confidence != "" {
		fmt.Fprintf(&b, "  <confidence>%s</confidence>\n", ans.Confidence)
	}
	if len(ans.Suggestions) > 0 {
		b.WriteString("  <suggestions>\n")
		for _, s := range ans.Suggestions {
			fmt.Fprintf(&b, "    <suggestion>%s</suggestion>\n", s)
		}
		b.WriteString("  </suggestions>\n")
	}

	fmt.Fprintf(&b, "</%s>", KindPresentAnswer)
	return b.String()
}

package protocol

import (
	"errors"
	"testing"
)

func TestNewControllerTurnInvariants(t *testing.T) {
	req := NewToolRequest(KindFetchFile, map[string]string{"file_path": "a.md"})
	ans := &FinalAnswer{Narrative: "done", Sources: []string{"a.md"}, Confidence: ConfidenceMedium}

	tests := []struct {
		name    string
		req     *ToolRequest
		ans     *FinalAnswer
		wantErr bool
	}{
		{"request only", req, nil, false},
		{"answer only", nil, ans, false},
		{"both actions", req, ans, true},
		{"no action", nil, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			turn, err := NewControllerTurn(0, "thinking", tt.req, tt.ans)
			if tt.wantErr {
				if err == nil {
					t.Fatal("want error, got none")
				}
				if !errors.Is(err, ErrProtocolViolation) {
					t.Errorf("error %v should wrap ErrProtocolViolation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewControllerTurn failed: %v", err)
			}
			if turn.Role != RoleController {
				t.Errorf("Role = %v, want controller", turn.Role)
			}
		})
	}
}

func TestNewControllerTurnRejectsEmbeddedBlock(t *testing.T) {
	ans := &FinalAnswer{Narrative: "done", Sources: []string{"a.md"}}
	reasoning := "I will also run <fetch_file><file_path>b.md</file_path></fetch_file> here"
	_, err := NewControllerTurn(0, reasoning, nil, ans)
	if !errors.Is(err, ErrProtocolViolation) {
		t.Errorf("embedded tool block in reasoning should be a protocol violation, got %v", err)
	}
}

func TestNewEnvironmentTurn(t *testing.T) {
	if _, err := NewEnvironmentTurn(1, nil); !errors.Is(err, ErrProtocolViolation) {
		t.Errorf("nil result should be a protocol violation, got %v", err)
	}

	res := &ToolResult{RequestID: "r1", Kind: KindLexicalSearch, Status: StatusEmpty}
	turn, err := NewEnvironmentTurn(1, res)
	if err != nil {
		t.Fatalf("NewEnvironmentTurn failed: %v", err)
	}
	if turn.Role != RoleEnvironment || turn.Result != res {
		t.Error("environment turn should carry the result")
	}
	if turn.IsTerminal() {
		t.Error("environment turns are never terminal")
	}
}

func TestIsTerminal(t *testing.T) {
	ans := &FinalAnswer{Narrative: "done", Sources: []string{"a.md"}}
	turn, err := NewControllerTurn(2, "", nil, ans)
	if err != nil {
		t.Fatalf("NewControllerTurn failed: %v", err)
	}
	if !turn.IsTerminal() {
		t.Error("answer turn should be terminal")
	}
}

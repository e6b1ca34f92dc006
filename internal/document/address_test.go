package document

import "testing"

func TestParseAddressAccepts(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"section_1", "section_1"},
		{"section_3.1", "section_3.1"},
		{"section_12.4.2", "section_12.4.2"},
		{"chunk_1", "chunk_1"},
		{"chunk_4-9", "chunk_4-9"},
		{"chunk_7-7", "chunk_7"}, // degenerate range canonicalizes to a single chunk
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			addr, err := ParseAddress(tt.in)
			if err != nil {
				t.Fatalf("ParseAddress(%q) failed: %v", tt.in, err)
			}
			if got := addr.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseAddressRejects(t *testing.T) {
	tests := []string{
		"",
		"section_0",
		"section1",
		"section_1.",
		"section_1.0",
		"section_01",
		"sections_1",
		"chunk_0",
		"chunk_1_5",
		"chunks_1",
		"chunk_5-2", // range start after end
		"chunk_1-",
		"chunk_-3",
		"chunk_1-2-3",
		"section_1 extra",
	}

	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			if _, err := ParseAddress(in); err == nil {
				t.Errorf("ParseAddress(%q) accepted, want error", in)
			}
		})
	}
}

func TestIsValidAddress(t *testing.T) {
	if !IsValidAddress("section_2.3") {
		t.Error("section_2.3 should be valid")
	}
	if IsValidAddress("chunk_3-1") {
		t.Error("chunk_3-1 should be invalid")
	}
}

func TestParseAddressChunkRange(t *testing.T) {
	addr, err := ParseAddress("chunk_2-5")
	if err != nil {
		t.Fatalf("ParseAddress: %v", err)
	}
	if addr.Kind != AddressChunk || addr.Start != 2 || addr.End != 5 {
		t.Errorf("got kind=%v start=%d end=%d, want chunk 2..5", addr.Kind, addr.Start, addr.End)
	}

	single, err := ParseAddress("chunk_3")
	if err != nil {
		t.Fatalf("ParseAddress: %v", err)
	}
	if single.Start != 3 || single.End != 3 {
		t.Errorf("single chunk got start=%d end=%d, want 3..3", single.Start, single.End)
	}
}

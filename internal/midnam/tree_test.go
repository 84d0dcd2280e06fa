package midnam

import "testing"

func TestParseTree(t *testing.T) {
	root, err := parseTree(`<?xml version="1.0"?>
<!DOCTYPE MIDINameDocument>
<!-- header -->
<MIDINameDocument>
	<A Name="one"><B>text</B></A>
	<A Name="two"><C><B>deep</B></C></A>
</MIDINameDocument>
`)
	if err != nil {
		t.Fatalf("parseTree() error = %v", err)
	}
	if root.name != "MIDINameDocument" {
		t.Errorf("root = %q", root.name)
	}
	if got := len(root.childrenNamed("A")); got != 2 {
		t.Errorf("childrenNamed(A) = %d, want 2", got)
	}
	if got := len(root.descendants("B")); got != 2 {
		t.Errorf("descendants(B) = %d, want 2", got)
	}
	if got := root.findText("B"); got != "text" {
		t.Errorf("findText(B) = %q, want %q", got, "text")
	}
	if got := root.find("A").attrOr("Name", ""); got != "one" {
		t.Errorf("first A Name = %q, want %q", got, "one")
	}
	if got := root.find("A").attrOr("Missing", "def"); got != "def" {
		t.Errorf("attrOr() = %q, want %q", got, "def")
	}
	if _, ok := root.childText("B"); ok {
		t.Error("childText(B) found a non-direct child")
	}
	if root.find("Z") != nil {
		t.Error("find(Z) != nil")
	}
}

func TestParseTree_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"whitespace", "  \n\t"},
		{"only declaration", `<?xml version="1.0"?>`},
		{"second root", "<a/><b/>"},
		{"text before root", "x<a/>"},
		{"unclosed", "<a><b></a>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseTree(tt.raw); err == nil {
				t.Errorf("parseTree(%q) error = nil, want error", tt.raw)
			}
		})
	}
}

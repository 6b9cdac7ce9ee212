package labels

import (
	"strings"
	"testing"

	"github.com/lindenwood-labs/trackpipe/internal/model"
)

func TestParseMapsKnownLabels(t *testing.T) {
	m, err := Parse(strings.NewReader("person\ncat\ndog\ncar\nbus\ntruck\nbicycle\nmotorcycle\nairplane\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	want := map[int]model.Type{
		0: model.Person,
		1: model.Pet,
		2: model.Pet,
		3: model.Vehicle,
		4: model.Vehicle,
		5: model.Vehicle,
		6: model.Vehicle,
		7: model.Vehicle,
		8: model.Unknown, // airplane has no dictionary entry
	}
	for id, typ := range want {
		if got := m.Type(id); got != typ {
			t.Errorf("class %d: expected %s, got %s", id, typ, got)
		}
	}
}

func TestTypeOnUnknownClassIDIsUnknown(t *testing.T) {
	m, err := Parse(strings.NewReader("person\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := m.Type(99); got != model.Unknown {
		t.Errorf("expected Unknown for out-of-range class id, got %s", got)
	}
}

func TestParseIsCaseInsensitive(t *testing.T) {
	m, err := Parse(strings.NewReader("Person\nCAT\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if m.Type(0) != model.Person {
		t.Errorf("expected case-insensitive match for 'Person'")
	}
	if m.Type(1) != model.Pet {
		t.Errorf("expected case-insensitive match for 'CAT'")
	}
}

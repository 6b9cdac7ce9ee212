// Package labels parses the model's label file and maps label strings to
// model.Type via the fixed dictionary described in §3/§6 of the spec.
package labels

import (
	"bufio"
	"io"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/lindenwood-labs/trackpipe/internal/model"
)

// dictionary maps a lower-cased label string to the model.Type it
// represents. Labels absent from this map are model.Unknown and are
// filtered out before publication, per §3.
var dictionary = map[string]model.Type{
	"person": model.Person,

	"cat": model.Pet,
	"dog": model.Pet,

	"car":        model.Vehicle,
	"bus":        model.Vehicle,
	"truck":      model.Vehicle,
	"bicycle":    model.Vehicle,
	"motorcycle": model.Vehicle,
}

// Entry pairs a label file line (by class id, the zero-based line number)
// with its resolved type.
type Entry struct {
	Label string
	Type  model.Type
}

// Map is the parsed label file, indexed by class id.
type Map map[int]Entry

// Type resolves a class id to its model.Type, or model.Unknown if the id is
// out of range or the label has no dictionary entry.
func (m Map) Type(classID int) model.Type {
	e, ok := m[classID]
	if !ok {
		return model.Unknown
	}
	return e.Type
}

// Parse reads a label file, one label per line, line number (zero-based)
// is the class id.
func Parse(r io.Reader) (Map, error) {
	scanner := bufio.NewScanner(r)
	m := make(Map)

	id := 0
	for scanner.Scan() {
		label := strings.TrimSpace(scanner.Text())
		if label == "" {
			id++
			continue
		}
		t := dictionary[strings.ToLower(label)]
		m[id] = Entry{Label: label, Type: t}
		id++
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "labels: reading label file")
	}
	return m, nil
}

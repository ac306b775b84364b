package record

import "errors"

var ErrFinalized = errors.New("record set is finalized")

// Set is the ordered result of one extraction run.
type Set struct {
	records   []Record
	finalized bool
}

func NewSet() *Set {
	return &Set{}
}

// Append stores a copy of the record, the caller may keep reusing its value.
func (s *Set) Append(r Record) error {
	if s.finalized {
		return ErrFinalized
	}
	s.records = append(s.records, r.Clone())
	return nil
}

func (s *Set) Len() int {
	return len(s.records)
}

func (s *Set) Records() []Record {
	out := make([]Record, len(s.records))
	for i, r := range s.records {
		out[i] = r.Clone()
	}
	return out
}

// Header is the union of every record's fields in first-seen order.
func (s *Set) Header() []string {
	seen := map[string]struct{}{}
	var header []string
	for _, r := range s.records {
		for _, f := range r.fields {
			if _, ok := seen[f]; ok {
				continue
			}
			seen[f] = struct{}{}
			header = append(header, f)
		}
	}
	return header
}

func (s *Set) Finalize() {
	s.finalized = true
}

func (s *Set) Finalized() bool {
	return s.finalized
}

package gff

// Field is a single (label, value) pair of a Struct, stored in insertion
// order: the wire format has no canonical field order of its own, so write
// order follows whatever order the caller built the tree in.
type Field struct {
	Label string
	Value Value
}

// Struct is an ordered set of named fields plus the engine's struct-type id
// (commonly 0xFFFFFFFF for the top-level root struct, and otherwise
// meaningful to the consuming game system).
type Struct struct {
	ID     uint32
	fields []Field
	index  map[string]int
}

// NewStruct returns an empty struct with the given struct-type id.
func NewStruct(id uint32) *Struct {
	return &Struct{ID: id, index: map[string]int{}}
}

// Set appends a new field or overwrites an existing one in place, preserving
// its original position.
func (s *Struct) Set(label string, v Value) {
	if i, ok := s.index[label]; ok {
		s.fields[i].Value = v
		return
	}
	s.index[label] = len(s.fields)
	s.fields = append(s.fields, Field{Label: label, Value: v})
}

// Get returns the field value for label and whether it was present.
func (s *Struct) Get(label string) (Value, bool) {
	i, ok := s.index[label]
	if !ok {
		return Value{}, false
	}
	return s.fields[i].Value, true
}

// Fields returns the fields in insertion order. Callers must not mutate the
// returned slice.
func (s *Struct) Fields() []Field { return s.fields }

// Len returns the number of fields.
func (s *Struct) Len() int { return len(s.fields) }

// Equal reports field-set equality: same struct id, same field labels, same
// values, regardless of insertion order.
func (s *Struct) Equal(o *Struct) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.ID != o.ID || len(s.fields) != len(o.fields) {
		return false
	}
	for label, i := range s.index {
		j, ok := o.index[label]
		if !ok {
			return false
		}
		if !s.fields[i].Value.Equal(o.fields[j].Value) {
			return false
		}
	}
	return true
}

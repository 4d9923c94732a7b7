// internal/wizard/fields.go
package wizard

// FieldKind discriminates the value types a form widget can produce.
type FieldKind string

const (
	KindString     FieldKind = "string"
	KindNumber     FieldKind = "number"
	KindBool       FieldKind = "bool"
	KindStringList FieldKind = "string_list"
	KindFileRef    FieldKind = "file_ref"
)

// FieldValue is a typed form value. Values are stored verbatim from the
// widget that produced them; a numeric widget yields KindNumber while a text
// widget yields KindString even when it holds digits. That distinction is
// what lets validation treat "0" as a valid zero and "" as missing.
type FieldValue struct {
	Kind FieldKind `json:"kind"`
	Str  string    `json:"str,omitempty"`
	Num  float64   `json:"num,omitempty"`
	Bool bool      `json:"bool,omitempty"`
	List []string  `json:"list,omitempty"`
}

func StringValue(s string) FieldValue {
	return FieldValue{Kind: KindString, Str: s}
}

func NumberValue(n float64) FieldValue {
	return FieldValue{Kind: KindNumber, Num: n}
}

func BoolValue(b bool) FieldValue {
	return FieldValue{Kind: KindBool, Bool: b}
}

func ListValue(items ...string) FieldValue {
	return FieldValue{Kind: KindStringList, List: items}
}

// FileRefValue holds the storage URL (or upload handle) of a file field.
func FileRefValue(url string) FieldValue {
	return FieldValue{Kind: KindFileRef, Str: url}
}

// Blank reports whether the value counts as "not provided". A number is never
// blank once set: 0 bedrooms is a real answer, the empty string is not.
func (v FieldValue) Blank() bool {
	switch v.Kind {
	case KindString, KindFileRef:
		return v.Str == ""
	case KindNumber, KindBool:
		return false
	case KindStringList:
		return len(v.List) == 0
	default:
		return true
	}
}

// FieldStore holds the mutable state of one in-progress multi-step form.
type FieldStore struct {
	initial map[string]FieldValue
	fields  map[string]FieldValue
	errors  map[string]string
}

// NewFieldStore creates a store seeded with the flow's declared defaults.
func NewFieldStore(initial map[string]FieldValue) *FieldStore {
	s := &FieldStore{initial: initial}
	s.Reset()
	return s
}

// SetField stores the value verbatim and clears any existing error for the
// field. No other side effects.
func (s *FieldStore) SetField(name string, value FieldValue) {
	s.fields[name] = value
	delete(s.errors, name)
}

// ToggleArrayField adds item to a multi-select field if absent, removes it if
// present. Symmetric difference, not append-only.
func (s *FieldStore) ToggleArrayField(name, item string) {
	cur := s.fields[name]
	list := cur.List
	for i, existing := range list {
		if existing == item {
			list = append(list[:i:i], list[i+1:]...)
			s.fields[name] = FieldValue{Kind: KindStringList, List: list}
			delete(s.errors, name)
			return
		}
	}
	s.fields[name] = FieldValue{Kind: KindStringList, List: append(list, item)}
	delete(s.errors, name)
}

// Get returns the value for name. The second result is false when the field
// was never set and has no declared default.
func (s *FieldStore) Get(name string) (FieldValue, bool) {
	v, ok := s.fields[name]
	return v, ok
}

// GetString returns the string content of a field, "" when unset.
func (s *FieldStore) GetString(name string) string {
	v, ok := s.fields[name]
	if !ok {
		return ""
	}
	return v.Str
}

// GetNumber returns the numeric content of a field. ok is false when the
// field is unset or not numeric; callers must not conflate that with zero.
func (s *FieldStore) GetNumber(name string) (float64, bool) {
	v, ok := s.fields[name]
	if !ok || v.Kind != KindNumber {
		return 0, false
	}
	return v.Num, true
}

// GetBool returns the boolean content of a field, false when unset.
func (s *FieldStore) GetBool(name string) bool {
	v, ok := s.fields[name]
	return ok && v.Kind == KindBool && v.Bool
}

// GetList returns the list content of a field, nil when unset.
func (s *FieldStore) GetList(name string) []string {
	v, ok := s.fields[name]
	if !ok {
		return nil
	}
	return v.List
}

// Fields returns a copy of the current field map.
func (s *FieldStore) Fields() map[string]FieldValue {
	out := make(map[string]FieldValue, len(s.fields))
	for k, v := range s.fields {
		out[k] = v
	}
	return out
}

// Errors returns the current field error map.
func (s *FieldStore) Errors() map[string]string {
	return s.errors
}

// SetErrors replaces the error map; the controller applies validator output
// through this.
func (s *FieldStore) SetErrors(errs map[string]string) {
	if errs == nil {
		errs = map[string]string{}
	}
	s.errors = errs
}

// ClearErrors drops all field errors.
func (s *FieldStore) ClearErrors() {
	s.errors = map[string]string{}
}

// Reset restores declared initial values and clears errors. Must run on
// close/cancel so state never leaks into the next open. In-progress input is
// gone after this; there is no persistence beyond the session.
func (s *FieldStore) Reset() {
	s.fields = make(map[string]FieldValue, len(s.initial))
	for k, v := range s.initial {
		s.fields[k] = v
	}
	s.errors = map[string]string{}
}

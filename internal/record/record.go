package record

import (
	"bytes"
	"encoding/json"
)

// Pair is a single key/value entry of a Record.
type Pair struct {
	Key   string
	Value Value
}

// Record is an ordered sequence of key/value pairs with unique keys.
// The zero value is an empty record ready to use.
type Record struct {
	pairs []Pair
}

// New creates an empty record with room for capacity pairs.
func New(capacity int) *Record {
	return &Record{pairs: make([]Pair, 0, capacity)}
}

// FromPairs creates a record from pairs. Later duplicates replace the
// value of the first occurrence and keep its position.
func FromPairs(pairs []Pair) *Record {
	r := New(len(pairs))
	for _, p := range pairs {
		r.Set(p.Key, p.Value)
	}
	return r
}

// Set assigns value to key. An existing key keeps its position;
// a new key is appended.
func (r *Record) Set(key string, value Value) {
	for i := range r.pairs {
		if r.pairs[i].Key == key {
			r.pairs[i].Value = value
			return
		}
	}
	r.pairs = append(r.pairs, Pair{Key: key, Value: value})
}

// Get returns the value stored under key.
func (r *Record) Get(key string) (Value, bool) {
	for _, p := range r.pairs {
		if p.Key == key {
			return p.Value, true
		}
	}
	return Value{}, false
}

// Has reports whether key is present.
func (r *Record) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// Len returns the number of pairs.
func (r *Record) Len() int {
	return len(r.pairs)
}

// Keys returns the keys in order.
func (r *Record) Keys() []string {
	keys := make([]string, len(r.pairs))
	for i, p := range r.pairs {
		keys[i] = p.Key
	}
	return keys
}

// Values returns the values in key order.
func (r *Record) Values() []Value {
	values := make([]Value, len(r.pairs))
	for i, p := range r.pairs {
		values[i] = p.Value
	}
	return values
}

// Pairs returns a copy of the pairs in order.
func (r *Record) Pairs() []Pair {
	out := make([]Pair, len(r.pairs))
	copy(out, r.pairs)
	return out
}

// MarshalJSON encodes the record as a JSON object preserving key order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range r.pairs {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(p.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := p.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ID is the opaque server-assigned identifier of a record. APIs that use numeric ids
// are accepted as well, the value is kept in its decimal text form.
type ID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid product id %s: %w", data, err)
	}
	*id = ID(n.String())
	return nil
}

// String implements fmt.Stringer.
func (id ID) String() string {
	return string(id)
}

// Specs is free text describing a product. Older records keep specs as an object of
// key/value pairs or as a list of lines, both are flattened to "key: value; ..." text.
type Specs string

// UnmarshalJSON implements json.Unmarshaler.
func (s *Specs) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	switch data[0] {
	case '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = Specs(OneLine(v))
	case '[':
		var items []any
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		parts := make([]string, 0, len(items))
		for _, item := range items {
			if v := OneLine(scalarText(item)); v != "" {
				parts = append(parts, v)
			}
		}
		*s = Specs(strings.Join(parts, "; "))
	case '{':
		parts, err := objectParts(data)
		if err != nil {
			return err
		}
		*s = Specs(strings.Join(parts, "; "))
	default:
		*s = Specs(OneLine(string(data)))
	}
	return nil
}

// String implements fmt.Stringer.
func (s Specs) String() string {
	return string(s)
}

// objectParts walks a JSON object in document order, producing "key: value" parts.
func objectParts(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var parts []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		k, v := OneLine(key), OneLine(scalarText(value))
		switch {
		case k != "" && v != "":
			parts = append(parts, k+": "+v)
		case v != "":
			parts = append(parts, v)
		}
	}
	return parts, nil
}

func scalarText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

// Package jsonutil wraps github.com/go-json-experiment/json for the API
// adapter and the JSON report. Decoding ignores unknown members so the
// platform can add fields without breaking us; encoding sorts map keys so
// report output is byte-stable.
//
// Usage:
//
//	var page collectionPage
//	if err := jsonutil.Unmarshal(body, &page); err != nil {
//	    return err
//	}
package jsonutil

import (
	"io"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// Unmarshal parses the JSON-encoded data and stores the result in v.
// Unknown object members are ignored.
func Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// UnmarshalRead decodes a single JSON value from r into v.
func UnmarshalRead(r io.Reader, v any) error {
	return json.UnmarshalRead(r, v)
}

// Marshal returns the JSON encoding of v with deterministic map ordering.
func Marshal(v any) ([]byte, error) {
	return json.Marshal(v, json.Deterministic(true))
}

// MarshalWrite writes the indented, deterministic encoding of v to w,
// followed by a newline.
func MarshalWrite(w io.Writer, v any, indent string) error {
	opts := []json.Options{json.Deterministic(true)}
	if indent != "" {
		opts = append(opts, jsontext.WithIndent(indent))
	}
	if err := json.MarshalWrite(w, v, opts...); err != nil {
		return err
	}
	_, err := w.Write([]byte{'\n'})
	return err
}

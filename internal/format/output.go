package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Envelope is the shape of every successful CLI payload.
type Envelope struct {
	Data any            `json:"data"`
	Meta map[string]any `json:"meta,omitempty"`
}

// ErrorEnvelope is written to stderr when a command fails.
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Formats lists the supported output formats.
var Formats = []string{"json", "edn"}

// Valid reports whether name is a supported format ("" means json).
func Valid(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return true
	}
	for _, f := range Formats {
		if f == name {
			return true
		}
	}
	return false
}

// Write writes v in the requested format.
//
// Supported formats:
// - json (default)
// - edn
func Write(w io.Writer, v any, format string, pretty bool) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		return WriteJSON(w, v, pretty)
	case "edn":
		return WriteEDN(w, v, pretty)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// WriteData wraps data (and optional meta) in an Envelope before writing it.
func WriteData(w io.Writer, data any, meta map[string]any, format string, pretty bool) error {
	return Write(w, Envelope{Data: data, Meta: meta}, format, pretty)
}

// WriteJSON writes strict JSON; one document per line unless pretty.
func WriteJSON(w io.Writer, v any, pretty bool) error {
	var b []byte
	var err error
	if pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(b))
	return err
}

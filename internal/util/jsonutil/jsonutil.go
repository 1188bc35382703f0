package jsonutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var ErrNoObject = errors.New("jsonutil: no JSON object found")

var codeFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// ExtractObject pulls the first JSON object out of untrusted LLM output.
// It prefers the content of a fenced code block, then falls back to the
// outermost {...} span of the raw text.
func ExtractObject(text string) (json.RawMessage, error) {
	text = strings.TrimSpace(text)
	if m := codeFenceRe.FindStringSubmatch(text); len(m) == 2 {
		if raw, err := objectSpan(m[1]); err == nil {
			return raw, nil
		}
	}
	return objectSpan(text)
}

func objectSpan(text string) (json.RawMessage, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, ErrNoObject
	}
	raw := json.RawMessage(text[start : end+1])
	var scratch any
	if err := json.Unmarshal(raw, &scratch); err != nil {
		return nil, err
	}
	return raw, nil
}

// UnmarshalLenient extracts the first JSON object from text and decodes it
// into v.
func UnmarshalLenient(text string, v any) error {
	raw, err := ExtractObject(text)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// MarshalNoEscape encodes v into JSON without HTML escaping. Dump files are
// read by humans and by the browser UI as-is.
func MarshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	// Remove trailing newline from json.Encoder.Encode
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// MarshalNoEscapeIndent is MarshalNoEscape with indentation.
func MarshalNoEscapeIndent(v any, prefix, indent string) ([]byte, error) {
	raw, err := MarshalNoEscape(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, prefix, indent); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

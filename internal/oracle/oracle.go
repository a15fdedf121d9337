// Package oracle defines the language-oracle contract used for intent
// classification and slot extraction, plus vendor adapters.
package oracle

import (
	"context"
	"errors"
	"strings"

	"github.com/tidwall/gjson"
)

// Oracle maps a system instruction and user content to free text. The text
// is expected, but never guaranteed, to be a JSON object.
type Oracle interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Func adapts a plain function to Oracle.
type Func func(ctx context.Context, system, user string) (string, error)

func (f Func) Complete(ctx context.Context, system, user string) (string, error) {
	return f(ctx, system, user)
}

// ErrNoObject is returned when oracle output holds no JSON object.
var ErrNoObject = errors.New("oracle output is not a JSON object")

// Object locates the JSON object inside raw oracle text. Models often wrap
// JSON in markdown fences or a sentence of preamble; both are tolerated.
func Object(raw string) (gjson.Result, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	if !strings.HasPrefix(s, "{") {
		start := strings.Index(s, "{")
		end := strings.LastIndex(s, "}")
		if start < 0 || end <= start {
			return gjson.Result{}, ErrNoObject
		}
		s = s[start : end+1]
	}
	if !gjson.Valid(s) {
		return gjson.Result{}, ErrNoObject
	}
	obj := gjson.Parse(s)
	if !obj.IsObject() {
		return gjson.Result{}, ErrNoObject
	}
	return obj, nil
}

// String returns the trimmed string at path, or "" when the field is missing,
// null, or not a string.
func String(obj gjson.Result, path string) string {
	v := obj.Get(path)
	if v.Type != gjson.String {
		return ""
	}
	return strings.TrimSpace(v.Str)
}

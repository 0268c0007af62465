// Package render produces a human-readable markdown digest from the opaque
// data carried by unit snapshots. Block tools store inline HTML in their
// string fields; the digest sanitizes that HTML and converts it to markdown
// so journals and logs stay greppable.
package render

import (
	"encoding/json"
	"sort"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/microcosm-cc/bluemonday"

	"github.com/mbaranovski/editor.js/blockwatch/mutation"
)

var policy = bluemonday.UGCPolicy()

// Digest renders one snapshot's data as a single markdown line. Unparseable
// or non-HTML data degrades to its raw text; Digest never fails.
func Digest(snap mutation.UnitSnapshot) string {
	parts := stringFields(snap.Data)
	if len(parts) == 0 {
		return ""
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		clean := policy.Sanitize(p)
		md, err := htmltomarkdown.ConvertString(clean)
		if err != nil {
			md = clean
		}
		md = strings.TrimSpace(strings.ReplaceAll(md, "\n", " "))
		if md != "" {
			out = append(out, md)
		}
	}
	return strings.Join(out, " · ")
}

// DigestBatch joins the digests of every update in a batch.
func DigestBatch(b mutation.Batch) string {
	out := make([]string, 0, len(b.Updates))
	for _, u := range b.Updates {
		if d := Digest(u); d != "" {
			out = append(out, u.ToolID+": "+d)
		}
	}
	return strings.Join(out, " | ")
}

// stringFields extracts every string value from a JSON object, in key order.
// Nested objects and arrays are walked depth-first.
func stringFields(data json.RawMessage) []string {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}
	var out []string
	walk(v, &out)
	return out
}

func walk(v any, out *[]string) {
	switch t := v.(type) {
	case string:
		if strings.TrimSpace(t) != "" {
			*out = append(*out, t)
		}
	case []any:
		for _, e := range t {
			walk(e, out)
		}
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			walk(t[k], out)
		}
	}
}

package render

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/mbaranovski/editor.js/blockwatch/mutation"
)

func TestDigest_InlineHTML(t *testing.T) {
	snap := mutation.UnitSnapshot{
		ToolID: "paragraph",
		UnitID: "u1",
		Data:   json.RawMessage(`{"text":"hello <b>world</b>"}`),
	}
	got := Digest(snap)
	if !strings.Contains(got, "hello") || !strings.Contains(got, "world") {
		t.Errorf("Digest: got %q, want text content preserved", got)
	}
	if strings.Contains(got, "<b>") {
		t.Errorf("Digest: got %q, want no raw HTML tags", got)
	}
}

func TestDigest_ScriptStripped(t *testing.T) {
	snap := mutation.UnitSnapshot{
		Data: json.RawMessage(`{"text":"ok<script>alert(1)</script>"}`),
	}
	got := Digest(snap)
	if strings.Contains(got, "alert") {
		t.Errorf("Digest: got %q, want script content stripped", got)
	}
}

func TestDigest_InvalidData(t *testing.T) {
	snap := mutation.UnitSnapshot{Data: json.RawMessage(`not json`)}
	if got := Digest(snap); got != "" {
		t.Errorf("Digest(invalid data): got %q, want empty", got)
	}
}

func TestDigest_NestedFields(t *testing.T) {
	snap := mutation.UnitSnapshot{
		ToolID: "list",
		Data:   json.RawMessage(`{"items":["one","two"],"style":"ordered"}`),
	}
	got := Digest(snap)
	for _, want := range []string{"one", "two", "ordered"} {
		if !strings.Contains(got, want) {
			t.Errorf("Digest: got %q, want it to contain %q", got, want)
		}
	}
}

func TestDigestBatch(t *testing.T) {
	b := mutation.Batch{Updates: []mutation.UnitSnapshot{
		{ToolID: "paragraph", Data: json.RawMessage(`{"text":"a"}`)},
		{ToolID: "header", Data: json.RawMessage(`{"text":"b","level":2}`)},
	}}
	got := DigestBatch(b)
	if !strings.Contains(got, "paragraph:") || !strings.Contains(got, "header:") {
		t.Errorf("DigestBatch: got %q", got)
	}
}

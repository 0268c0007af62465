package mutation

import (
	"encoding/json"
	"testing"
)

func TestClassify_SubtreeChange(t *testing.T) {
	ev := Event{
		Kind:       KindSubtree,
		Target:     Node{XPath: "/div[1]", Tag: "div"},
		AddedNodes: []Node{{XPath: "/div[1]/p[1]", Tag: "p"}},
	}
	if got := Classify(ev); got != ContentAffecting {
		t.Errorf("Classify(subtree-change): got %v, want ContentAffecting", got)
	}
}

func TestClassify_TextChange(t *testing.T) {
	ev := Event{Kind: KindText, Target: Node{XPath: "/div[1]/p[1]/text()"}}
	if got := Classify(ev); got != ContentAffecting {
		t.Errorf("Classify(text-change): got %v, want ContentAffecting", got)
	}
}

func TestClassify_AttributeOnWrapper(t *testing.T) {
	ev := Event{
		Kind:          KindAttribute,
		Target:        Node{XPath: "/div[1]", Tag: "div", Classes: []string{WrapperClass, "ce-block--selected"}},
		AttributeName: "data-id",
	}
	if got := Classify(ev); got != Structural {
		t.Errorf("Classify(attribute-change on wrapper): got %v, want Structural", got)
	}
}

func TestClassify_AttributeOnOtherElement(t *testing.T) {
	ev := Event{
		Kind:          KindAttribute,
		Target:        Node{XPath: "/div[1]/p[1]", Tag: "p", Classes: []string{"ce-paragraph"}},
		AttributeName: "style",
	}
	if got := Classify(ev); got != ContentAffecting {
		t.Errorf("Classify(attribute-change on content element): got %v, want ContentAffecting", got)
	}
}

func TestClassify_AttributeNoClasses(t *testing.T) {
	ev := Event{Kind: KindAttribute, Target: Node{XPath: "/div[1]/img[1]", Tag: "img"}}
	if got := Classify(ev); got != ContentAffecting {
		t.Errorf("Classify(attribute-change, no classes): got %v, want ContentAffecting", got)
	}
}

func TestClassify_UnknownKindIsStructural(t *testing.T) {
	ev := Event{Kind: Kind("selection-change"), Target: Node{XPath: "/div[1]"}}
	if got := Classify(ev); got != Structural {
		t.Errorf("Classify(unknown kind): got %v, want Structural (fail-safe)", got)
	}
}

func TestClassifyWith_CustomWrapper(t *testing.T) {
	ev := Event{
		Kind:   KindAttribute,
		Target: Node{XPath: "/div[1]", Classes: []string{"my-unit"}},
	}
	if got := ClassifyWith(ev, "my-unit"); got != Structural {
		t.Errorf("ClassifyWith custom marker: got %v, want Structural", got)
	}
	// Default marker does not match, so the same event is content-affecting.
	if got := Classify(ev); got != ContentAffecting {
		t.Errorf("Classify with default marker: got %v, want ContentAffecting", got)
	}
}

func TestBatch_RoundTrip(t *testing.T) {
	b := &Batch{
		ID:  "0198f8b2-0000-7000-8000-000000000000",
		Seq: 7,
		Updates: []UnitSnapshot{
			{ToolID: "paragraph", UnitID: "u1", Data: json.RawMessage(`{"text":"hi"}`), Timestamp: 1700000000000},
		},
		InputEvents: 2,
		Timestamp:   1700000000450,
	}

	data, err := MarshalBatch(b)
	if err != nil {
		t.Fatalf("MarshalBatch: %v", err)
	}
	got, err := UnmarshalBatch(data)
	if err != nil {
		t.Fatalf("UnmarshalBatch: %v", err)
	}
	if got.Seq != 7 || len(got.Updates) != 1 || got.Updates[0].UnitID != "u1" {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.InputEvents != 2 {
		t.Errorf("InputEvents: got %d, want 2", got.InputEvents)
	}
}

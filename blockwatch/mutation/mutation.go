// Package mutation defines the raw change events observed on a block
// editor's working tree and the classification rules that decide which of
// them affect unit content. These are the public API contract: any consumer
// of blockwatch imports this package to receive and process updates.
package mutation

// Kind is the type of raw mutation observed.
type Kind string

const (
	KindSubtree   Kind = "subtree-change"   // child nodes inserted or removed
	KindText      Kind = "text-change"      // character data modified
	KindAttribute Kind = "attribute-change" // attribute set, changed or removed
)

// WrapperClass marks the element that wraps a single editable unit.
// Attribute churn on the wrapper itself is bookkeeping written by the editor
// (identifiers, selection state), not user content.
const WrapperClass = "ce-block"

// Node describes a tree node referenced by an Event.
type Node struct {
	XPath   string   `json:"xpath"`
	Tag     string   `json:"tag,omitempty"`
	Classes []string `json:"classes,omitempty"`
}

// HasClass reports whether the node carries the given class.
func (n Node) HasClass(class string) bool {
	for _, c := range n.Classes {
		if c == class {
			return true
		}
	}
	return false
}

// Event is a single raw mutation. Immutable once produced by the source;
// consumed once per classification pass.
type Event struct {
	Kind          Kind   `json:"kind"`
	Target        Node   `json:"target"`
	AddedNodes    []Node `json:"added_nodes,omitempty"`
	RemovedNodes  []Node `json:"removed_nodes,omitempty"`
	AttributeName string `json:"attribute_name,omitempty"`
	OldValue      string `json:"old_value,omitempty"`
}

// Class is the verdict of classification.
type Class int

const (
	// Structural covers editor bookkeeping: wrapper attribute churn and any
	// event kind the classifier does not recognise.
	Structural Class = iota
	// ContentAffecting means the event changed something a unit snapshot
	// would capture.
	ContentAffecting
)

// Classify decides whether a raw mutation affects unit content, using the
// default WrapperClass marker. Pure and total: unknown kinds are Structural,
// so unrecognised events never over-notify.
func Classify(ev Event) Class {
	return ClassifyWith(ev, WrapperClass)
}

// ClassifyWith is Classify with a custom unit wrapper marker class.
func ClassifyWith(ev Event, wrapperClass string) Class {
	switch ev.Kind {
	case KindSubtree, KindText:
		return ContentAffecting
	case KindAttribute:
		// Attribute changes on the wrapper element itself are functional
		// attributes set by the editor, not content.
		if ev.Target.HasClass(wrapperClass) {
			return Structural
		}
		return ContentAffecting
	default:
		return Structural
	}
}

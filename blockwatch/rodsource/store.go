package rodsource

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-rod/rod"

	"github.com/mbaranovski/editor.js/blockwatch"
	"github.com/mbaranovski/editor.js/blockwatch/mutation"
)

// PageEditor resolves units against the live editor on the page. The current
// unit is the wrapper element containing the caret; a snapshot is the
// wrapper's rendered content. Both go through page evaluation, so lookups
// observe whatever state the page has at call time.
type PageEditor struct {
	page    *rod.Page
	wrapper string
}

// Editor returns a UnitStore + Serializer backed by the page. wrapper is the
// unit wrapper marker class (without the leading dot).
func Editor(page *rod.Page, wrapper string) *PageEditor {
	return &PageEditor{page: page, wrapper: wrapper}
}

// CurrentUnit finds the wrapper element enclosing the active element and
// returns its data-id. No focused wrapper means no current unit.
func (e *PageEditor) CurrentUnit(ctx context.Context) (blockwatch.UnitRef, bool, error) {
	js := fmt.Sprintf(`() => {
		const active = document.activeElement;
		if (!active) return '';
		const unit = active.closest('.' + %q);
		if (!unit) return '';
		return unit.dataset.id || '';
	}`, e.wrapper)

	res, err := e.page.Context(ctx).Eval(js)
	if err != nil {
		return blockwatch.UnitRef{}, false, fmt.Errorf("rodsource: current unit: %w", err)
	}
	id := res.Value.Str()
	if id == "" {
		return blockwatch.UnitRef{}, false, nil
	}
	return blockwatch.UnitRef{ID: id}, true, nil
}

// Serialize reads the unit's wrapper element and captures its content. A
// unit that disappeared before the lookup yields a nil snapshot.
func (e *PageEditor) Serialize(ctx context.Context, unitID string) (*mutation.UnitSnapshot, error) {
	js := fmt.Sprintf(`() => {
		const unit = document.querySelector('.' + %q + '[data-id=' + JSON.stringify(%q) + ']');
		if (!unit) return '';
		return JSON.stringify({
			tool: unit.dataset.tool || 'html',
			data: { html: unit.innerHTML },
		});
	}`, e.wrapper, unitID)

	res, err := e.page.Context(ctx).Eval(js)
	if err != nil {
		return nil, fmt.Errorf("rodsource: serialize %s: %w", unitID, err)
	}
	raw := res.Value.Str()
	if raw == "" {
		return nil, nil
	}

	var payload struct {
		Tool string          `json:"tool"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("rodsource: parse unit %s: %w", unitID, err)
	}

	return &mutation.UnitSnapshot{
		ToolID:    payload.Tool,
		UnitID:    unitID,
		Data:      payload.Data,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

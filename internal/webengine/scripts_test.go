package webengine

import (
	"errors"
	"strings"
	"testing"

	"pkt.systems/quarterdeck/core"
	"pkt.systems/quarterdeck/schema"
)

func TestResolveExprSelector(t *testing.T) {
	expr, err := resolveExpr(core.ElementTarget{Selector: "#login"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if expr != `document.querySelector("#login")` {
		t.Fatalf("unexpected expr %s", expr)
	}
}

func TestResolveExprDOMId(t *testing.T) {
	expr, err := resolveExpr(core.ElementTarget{ElementID: "submit-btn"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if expr != `document.getElementById("submit-btn")` {
		t.Fatalf("unexpected expr %s", expr)
	}
}

func TestResolveExprSyntheticId(t *testing.T) {
	expr, err := resolveExpr(core.ElementTarget{ElementID: "el-4"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !strings.HasSuffix(expr, "[4]") || !strings.Contains(expr, "querySelectorAll") {
		t.Fatalf("unexpected expr %s", expr)
	}
}

func TestResolveExprPosition(t *testing.T) {
	expr, err := resolveExpr(core.ElementTarget{Position: &schema.Position{X: 12.5, Y: 40}})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if expr != `document.elementFromPoint(12.5, 40)` {
		t.Fatalf("unexpected expr %s", expr)
	}
}

func TestResolveExprEmptyTarget(t *testing.T) {
	_, err := resolveExpr(core.ElementTarget{})
	if !errors.Is(err, schema.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestSyntheticIndex(t *testing.T) {
	for id, want := range map[string]struct {
		index int
		ok    bool
	}{
		"el-0":   {0, true},
		"el-17":  {17, true},
		"el-":    {0, false},
		"el--1":  {0, false},
		"el-x":   {0, false},
		"header": {0, false},
	} {
		index, ok := syntheticIndex(id)
		if ok != want.ok || index != want.index {
			t.Errorf("syntheticIndex(%q) = (%d, %v), want (%d, %v)", id, index, ok, want.index, want.ok)
		}
	}
}

func TestQuoteJSEscapes(t *testing.T) {
	quoted := quoteJS(`he said "hi" </script>`)
	if strings.Contains(quoted, `"hi"`) {
		t.Fatalf("quotes not escaped: %s", quoted)
	}
	if !strings.HasPrefix(quoted, `"`) || !strings.HasSuffix(quoted, `"`) {
		t.Fatalf("not a string literal: %s", quoted)
	}
}

func TestFillScriptEmbedsText(t *testing.T) {
	script, err := fillScript(`it's "quoted"`, core.ElementTarget{Selector: "input[name=q]"})
	if err != nil {
		t.Fatalf("fill script: %v", err)
	}
	if !strings.Contains(script, quoteJS(`it's "quoted"`)) {
		t.Fatalf("text not embedded safely:\n%s", script)
	}
	if !strings.Contains(script, "dispatchEvent") {
		t.Fatalf("input event missing:\n%s", script)
	}
}

func TestClickScriptPropagatesTargetError(t *testing.T) {
	if _, err := clickScript(core.ElementTarget{}); !errors.Is(err, schema.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

package webengine

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"pkt.systems/quarterdeck/core"
	"pkt.systems/quarterdeck/schema"
)

// interactiveSelector matches the elements worth surfacing to a caller
// scripting the page.
const interactiveSelector = `button, a, input, textarea, select, [role="button"], [onclick]`

const pageInfoScript = `({url: window.location.href, title: document.title, readyState: document.readyState})`

var listElementsScript = `(() => {
	const nodes = document.querySelectorAll(` + quoteJS(interactiveSelector) + `);
	const out = [];
	nodes.forEach((el) => {
		const attributes = {};
		for (const attr of el.attributes) {
			attributes[attr.name] = attr.value;
		}
		const text = (el.innerText || el.value || "").trim().slice(0, 200);
		out.push({id: el.id || "", tag: el.tagName.toLowerCase(), text: text, attributes: attributes});
	});
	return out;
})()`

// clickScript resolves the target and clicks it, reporting whether an
// element was found.
func clickScript(target core.ElementTarget) (string, error) {
	expr, err := resolveExpr(target)
	if err != nil {
		return "", err
	}
	return `(() => {
	const element = ` + expr + `;
	if (!element) {
		return false;
	}
	element.click();
	return true;
})()`, nil
}

// fillScript resolves the target, sets its value, and dispatches an
// input event so framework listeners observe the change.
func fillScript(text string, target core.ElementTarget) (string, error) {
	expr, err := resolveExpr(target)
	if err != nil {
		return "", err
	}
	return `(() => {
	const element = ` + expr + `;
	if (!element || (element.tagName !== 'INPUT' && element.tagName !== 'TEXTAREA')) {
		return false;
	}
	element.value = ` + quoteJS(text) + `;
	element.dispatchEvent(new Event('input', {bubbles: true}));
	return true;
})()`, nil
}

// resolveExpr builds the JS expression locating the target element.
// Synthesized el-N handles resolve positionally against the same
// interactive query that produced them.
func resolveExpr(target core.ElementTarget) (string, error) {
	switch {
	case target.Selector != "":
		return `document.querySelector(` + quoteJS(target.Selector) + `)`, nil
	case target.ElementID != "":
		if index, ok := syntheticIndex(target.ElementID); ok {
			return `document.querySelectorAll(` + quoteJS(interactiveSelector) + `)[` + strconv.Itoa(index) + `]`, nil
		}
		return `document.getElementById(` + quoteJS(target.ElementID) + `)`, nil
	case target.Position != nil:
		return fmt.Sprintf(`document.elementFromPoint(%g, %g)`, target.Position.X, target.Position.Y), nil
	default:
		return "", fmt.Errorf("%w: empty element target", schema.ErrInvalidArgument)
	}
}

func syntheticIndex(id string) (int, bool) {
	rest, ok := strings.CutPrefix(id, "el-")
	if !ok {
		return 0, false
	}
	index, err := strconv.Atoi(rest)
	if err != nil || index < 0 {
		return 0, false
	}
	return index, true
}

// quoteJS embeds a Go string as a JS string literal. JSON escaping is a
// strict subset of JS, so marshal output is safe to splice.
func quoteJS(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}

package persist

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/fabtools/card-collector/pkg/catalog"
)

// renderSet renders one set as human-readable text. The output holds the
// same logical card sequence as the JSON representation: every card, in
// received order, with every field. Keys are sorted so the rendering is
// deterministic regardless of catalog field order.
func renderSet(code string, cards []catalog.Card) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Set %s: %d cards\n", code, len(cards))
	fmt.Fprintf(&b, "%s\n\n", strings.Repeat("-", len(code)+16))

	for i, card := range cards {
		fmt.Fprintf(&b, "Card %d\n", i+1)
		b.WriteString(renderCard(card))
		b.WriteString("\n")
	}

	return b.String()
}

// renderCard renders one card record as indented key/value lines. Records
// that are not JSON objects fall back to their compact encoding.
func renderCard(card catalog.Card) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(card, &fields); err != nil {
		return "  " + compact(card) + "\n"
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "  %s: %s\n", k, compact(fields[k]))
	}
	return b.String()
}

// compact normalizes a raw JSON value to its compact encoding.
func compact(raw json.RawMessage) string {
	var buf strings.Builder
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return string(raw)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

package reconcile

import (
	"encoding/json"
	"strconv"
	"strings"
)

type cellKind int

const (
	cellMissing cellKind = iota // absent or null
	cellNumber
	cellDash
	cellBlank
	cellInvalid
)

type reading struct {
	value      float64
	confidence float64
}

type note struct {
	ref      string
	subject  string
	total    *float64
	items    []noteItem
	additive bool
}

type noteItem struct {
	label string
	value float64
}

// sum is the note's total when stated, else the sum of its breakdown.
func (n *note) sum() (float64, bool) {
	if n.total != nil {
		return *n.total, true
	}
	if len(n.items) == 0 {
		return 0, false
	}
	var s float64
	for _, it := range n.items {
		s += it.value
	}
	return s, true
}

// cell is one raw value as the model returned it.
type cell struct {
	kind         cellKind
	value        float64
	text         string
	label        string
	confidence   float64
	alternatives []reading
	note         *note
}

var dashes = map[rune]bool{'-': true, '–': true, '—': true, '‒': true, '―': true}

var blanks = map[string]bool{"": true, "nil": true, "null": true, "na": true, "n/a": true}

// parseCell interprets one raw value. Objects carry the value under
// "value" alongside label, confidence, alternatives and note.
func parseCell(v interface{}) cell {
	switch t := v.(type) {
	case nil:
		return cell{kind: cellMissing}
	case float64:
		return cell{kind: cellNumber, value: t}
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return cell{kind: cellInvalid, text: t.String()}
		}
		return cell{kind: cellNumber, value: f}
	case int:
		return cell{kind: cellNumber, value: float64(t)}
	case string:
		return parseText(t)
	case map[string]interface{}:
		return parseObject(t)
	}
	return cell{kind: cellInvalid, text: "unsupported value"}
}

func parseObject(m map[string]interface{}) cell {
	raw, hasValue := m["value"]
	var c cell
	if hasValue {
		c = parseCell(raw)
		if _, nested := raw.(map[string]interface{}); nested {
			c = cell{kind: cellInvalid, text: "nested object"}
		}
	}
	if s, ok := m["label"].(string); ok {
		c.label = strings.TrimSpace(s)
	}
	if f, ok := number(m["confidence"]); ok {
		c.confidence = f
	}
	if alts, ok := m["alternatives"].([]interface{}); ok {
		for _, a := range alts {
			am, ok := a.(map[string]interface{})
			if !ok {
				continue
			}
			ac := parseCell(am["value"])
			if ac.kind != cellNumber {
				continue
			}
			r := reading{value: ac.value}
			if f, ok := number(am["confidence"]); ok {
				r.confidence = f
			}
			c.alternatives = append(c.alternatives, r)
		}
	}
	if nm, ok := m["note"].(map[string]interface{}); ok {
		c.note = parseNote(nm)
	}
	return c
}

func parseNote(m map[string]interface{}) *note {
	n := &note{}
	if s, ok := m["ref"].(string); ok {
		n.ref = s
	} else if f, ok := number(m["ref"]); ok {
		n.ref = strconv.FormatFloat(f, 'f', -1, 64)
	}
	if s, ok := m["subject"].(string); ok {
		n.subject = strings.TrimSpace(s)
	}
	if tc := parseCell(m["total"]); tc.kind == cellNumber {
		total := tc.value
		n.total = &total
	}
	if b, ok := m["additive"].(bool); ok {
		n.additive = b
	}
	if items, ok := m["items"].([]interface{}); ok {
		for _, it := range items {
			im, ok := it.(map[string]interface{})
			if !ok {
				continue
			}
			ic := parseCell(im["value"])
			if ic.kind == cellDash || ic.kind == cellBlank {
				ic.value, ic.kind = 0, cellNumber
			}
			if ic.kind != cellNumber {
				continue
			}
			label, _ := im["label"].(string)
			n.items = append(n.items, noteItem{label: label, value: ic.value})
		}
	}
	if n.total == nil && len(n.items) == 0 && n.subject == "" {
		return nil
	}
	return n
}

func parseText(s string) cell {
	s = strings.TrimSpace(s)
	if blanks[strings.ToLower(s)] {
		return cell{kind: cellBlank}
	}
	if isDash(s) {
		return cell{kind: cellDash}
	}
	if f, ok := parseAmount(s); ok {
		return cell{kind: cellNumber, value: f}
	}
	return cell{kind: cellInvalid, text: s}
}

func isDash(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !dashes[r] && r != ' ' {
			return false
		}
	}
	return true
}

var currencyMarks = strings.NewReplacer(",", "", "₹", "", "Rs.", "", "Rs", "", "INR", "", " ", "", " ", "")

// parseAmount reads printed amounts such as "1,234.50", "(120)" or
// "₹ 2,00,000".
func parseAmount(s string) (float64, bool) {
	s = currencyMarks.Replace(s)
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	if strings.HasSuffix(s, "-") && len(s) > 1 {
		negative = true
		s = s[:len(s)-1]
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if negative {
		f = -f
	}
	return f, true
}

func number(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		return parseAmount(t)
	}
	return 0, false
}

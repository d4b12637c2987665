package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n[1,2]\n```", `[1,2]`},
		{"no fence", "  {\"a\":1}  ", `{"a":1}`},
		{"unterminated", "```json\n{\"a\":1}", `{"a":1}`},
		{"markdown fence", "```markdown\n# Title\n```", "# Title"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFences(tt.in))
		})
	}
}

func TestPlainText(t *testing.T) {
	md := "## Company\n\n**Acme Traders** is a *partnership* firm.\nIt is active.\n\n- Trade Name: Acme\n- Status: Active\n"
	got := PlainText(md)

	assert.NotContains(t, got, "**")
	assert.NotContains(t, got, "##")
	assert.Contains(t, got, "Company")
	assert.Contains(t, got, "Acme Traders is a partnership firm. It is active.")
	assert.Contains(t, got, "• Trade Name: Acme\n• Status: Active")
}

func TestSmartParse(t *testing.T) {
	var out map[string]interface{}

	_, err := SmartParse("```json\n{\"a\": 1}\n```", &out)
	require.NoError(t, err)
	assert.Equal(t, float64(1), out["a"])

	out = nil
	_, err = SmartParse("{'a': 2, 'b': [1, 2,],}", &out)
	require.NoError(t, err)
	assert.Equal(t, float64(2), out["a"])

	out = nil
	_, err = SmartParse("# comment\na: 3\n", &out)
	require.NoError(t, err)
	assert.Equal(t, float64(3), out["a"])
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 0.8, Round2(0.8049))
	assert.Equal(t, 0.81, Round2(0.805))
	assert.Equal(t, -1.24, Round2(-1.235))
	assert.Equal(t, 12.0, Round2(12))
}

func TestClampRunes(t *testing.T) {
	s := strings.Repeat("word ", 300)
	got := ClampRunes(s, 1000)
	assert.LessOrEqual(t, utf8.RuneCountInString(got), 1000)
	assert.True(t, strings.HasSuffix(got, "word"))

	assert.Equal(t, "short", ClampRunes("  short ", 10))
}

package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type planShape struct {
	Queries []string `json:"queries"`
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"json fence", "Here you go:\n```json\n{\"a\":1}\n```\nthanks", `{"a":1}`},
		{"generic fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"no fence", "  {\"a\":1}  ", `{"a":1}`},
		{"unterminated", "```json\n{\"a\":1}", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFence(tt.in))
		})
	}
}

func TestExtractJSONObject(t *testing.T) {
	span, ok := ExtractJSONObject(`Sure! {"a":{"b":2}} Hope this helps.`)
	require.True(t, ok)
	assert.Equal(t, `{"a":{"b":2}}`, span)

	_, ok = ExtractJSONObject("no braces at all")
	assert.False(t, ok)

	_, ok = ExtractJSONObject("} backwards {")
	assert.False(t, ok)
}

func TestDecodeLLMJSON(t *testing.T) {
	t.Run("strict", func(t *testing.T) {
		d := DecodeLLMJSON[planShape]("```json\n{\"queries\":[\"q1\",\"q2\"]}\n```")
		v, ok := d.Parsed()
		require.True(t, ok, d.Reason)
		assert.Equal(t, []string{"q1", "q2"}, v.Queries)
		assert.True(t, d.Strict())
	})

	t.Run("repaired", func(t *testing.T) {
		d := DecodeLLMJSON[planShape](`{"queries": ["q1", "q2",],}`)
		v, ok := d.Parsed()
		require.True(t, ok, d.Reason)
		assert.Equal(t, []string{"q1", "q2"}, v.Queries)
		assert.NotEqual(t, TierStrict, d.Tier)
		assert.False(t, d.Strict())
	})

	t.Run("prose", func(t *testing.T) {
		raw := "I cannot produce JSON for this request."
		d := DecodeLLMJSON[planShape](raw)
		_, ok := d.Parsed()
		assert.False(t, ok)
		assert.Equal(t, raw, d.Raw)
		assert.NotEmpty(t, d.Reason)
		assert.Empty(t, d.Tier)
		assert.False(t, d.Strict())
	})
}

func TestParseHJSON(t *testing.T) {
	out, err := ParseHJSON("{\n  # comment\n  name: Apple\n}")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Apple"}`, out)
}

func TestCleanMarkdown(t *testing.T) {
	assert.Equal(t, "# Title", CleanMarkdown("```markdown\n# Title\n```"))
	assert.Equal(t, "text", CleanMarkdown("```\ntext\n```"))
	assert.Equal(t, "plain", CleanMarkdown("  plain  "))
	assert.Equal(t, "a\n```go\nx\n```\nb", CleanMarkdown("a\n```go\nx\n```\nb"))
}

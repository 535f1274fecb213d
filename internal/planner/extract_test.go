package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		ok      bool
	}{
		{
			name:    "plain object",
			content: `{"title":"Rome"}`,
			want:    `{"title":"Rome"}`,
			ok:      true,
		},
		{
			name:    "fenced",
			content: "```json\n{\"title\":\"Rome\"}\n```",
			want:    `{"title":"Rome"}`,
			ok:      true,
		},
		{
			name:    "uppercase fence",
			content: "```JSON\n{\"a\":1}\n```",
			want:    `{"a":1}`,
			ok:      true,
		},
		{
			name:    "surrounding prose",
			content: "Here is your plan: {\"a\":{\"b\":2}} Enjoy!",
			want:    `{"a":{"b":2}}`,
			ok:      true,
		},
		{
			name:    "braces inside strings",
			content: `{"tips":"bring } and { along","q":"say \"}\""}`,
			want:    `{"tips":"bring } and { along","q":"say \"}\""}`,
			ok:      true,
		},
		{
			name:    "trailing second object ignored",
			content: `{"a":1}{"b":2}`,
			want:    `{"a":1}`,
			ok:      true,
		},
		{
			name:    "no object",
			content: "sorry, I cannot help",
			ok:      false,
		},
		{
			name:    "unbalanced",
			content: `{"a":{"b":1}`,
			ok:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSON(tt.content)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterInput(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "12345", "12345"},
		{"trim", "  42\t", "42"},
		{"tags", "<b>42</b>", "42"},
		{"unterminated tag", "42<script", "42"},
		{"entities", `a&b"c`, "a&amp;b&#34;c"},
		{"empty", "   ", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FilterInput(tc.in))
		})
	}
}

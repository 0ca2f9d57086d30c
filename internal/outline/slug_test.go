package outline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Intro", "intro"},
		{"Hello, World!", "hello-world"},
		{"  leading and trailing  ", "leading-and-trailing"},
		{"a - b", "a-b"},
		{"--dashes--", "dashes"},
		{"snake_case_stays", "snake_case_stays"},
		{"Version 2.0 Notes", "version-20-notes"},
		{"中文 标题", "中文-标题"},
		{"Mixed 中文 Title", "mixed-中文-title"},
		{"Café", "caf"},
		{"`code` *em*", "code-em"},
		{"!!!", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			require.Equal(t, tt.want, Slug(tt.in))
		})
	}
}

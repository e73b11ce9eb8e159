package textchunk

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectLanguage(t *testing.T) {
	t.Parallel()

	cases := []struct {
		text string
		want Language
	}{
		{"Cô bé quàng khăn đỏ đi thăm bà", LanguageVietnamese},
		{"Chú mèo con thích ăn cá", LanguageVietnamese},
		{"Một ngày đẹp trời", LanguageVietnamese},
		{"Nguyễn", LanguageVietnamese},
		// Decomposed input behaves like precomposed input.
		{"Vie\u0302\u0323t Nam", LanguageVietnamese},
		{"A brave little fox explores the forest", LanguageOther},
		{"El niño", LanguageOther},
		{"Über den Wolken", LanguageOther},
		{"", LanguageOther},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, DetectLanguage(tc.text), tc.text)
	}
}

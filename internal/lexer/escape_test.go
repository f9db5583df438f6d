package lexer

import "testing"

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		quote   Quote
		escaped rune
		want    string
	}{
		{name: "outside quotes escapes literally", quote: QuoteNone, escaped: 'n', want: "n"},
		{name: "outside quotes escapes space", quote: QuoteNone, escaped: ' ', want: " "},
		{name: "double quote escapes quote", quote: QuoteDouble, escaped: '"', want: `"`},
		{name: "double quote escapes backslash", quote: QuoteDouble, escaped: '\\', want: `\`},
		{name: "double quote preserves unknown escape", quote: QuoteDouble, escaped: 'n', want: `\n`},
		{name: "single quote preserves everything", quote: QuoteSingle, escaped: 'n', want: `\n`},
		{name: "single quote preserves backslash", quote: QuoteSingle, escaped: '\\', want: `\\`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(tt.quote, tt.escaped); got != tt.want {
				t.Errorf("Resolve(%v, %q) = %q, want %q", tt.quote, tt.escaped, got, tt.want)
			}
		})
	}
}

package reply_test

import (
	"strings"
	"testing"

	"github.com/teledigest/teledigest/internal/bot/reply"
)

func TestSplitChunks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		size int
		want []string
	}{
		{
			name: "short text stays whole",
			text: "hello",
			size: 10,
			want: []string{"hello"},
		},
		{
			name: "exact fit stays whole",
			text: "hello",
			size: 5,
			want: []string{"hello"},
		},
		{
			name: "long text splits in order",
			text: "abcdefghij",
			size: 4,
			want: []string{"abcd", "efgh", "ij"},
		},
		{
			name: "zero size disables splitting",
			text: "abcdef",
			size: 0,
			want: []string{"abcdef"},
		},
		{
			name: "multibyte runes are not cut",
			text: "привет мир",
			size: 6,
			want: []string{"привет", " мир"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := reply.SplitChunks(tc.text, tc.size)
			if len(got) != len(tc.want) {
				t.Fatalf("got %d chunks %q, want %d", len(got), got, len(tc.want))
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("chunk %d = %q, want %q", i, got[i], tc.want[i])
				}
			}
			if strings.Join(got, "") != tc.text {
				t.Errorf("chunks do not reassemble to the input: %q", got)
			}
		})
	}
}

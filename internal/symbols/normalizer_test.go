package symbols

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "AAPL", "AAPL"},
		{"lowercase", "msft", "MSFT"},
		{"whitespace", "  SPY ", "SPY"},
		{"dash class share", "BRK-B", "BRK.B"},
		{"slash class share", "BRK/B", "BRK.B"},
		{"dot class share unchanged", "BRK.B", "BRK.B"},
		{"space class share", "BF B", "BF.B"},
		{"sloppy double separator", "BRK- B", "BRK.B"},
		{"trailing separator", "BRK-", "BRK"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	for _, in := range []string{"BRK-B", "brk/b", "AAPL", " BF B "} {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "normalize must be idempotent for %q", in)
	}
}

func TestNormalizeAll_DropsEmpties(t *testing.T) {
	got := NormalizeAll([]string{"aapl", "", "  ", "BRK-B"})
	assert.Equal(t, []string{"AAPL", "BRK.B"}, got)
}

func TestDedupe_PreservesOrder(t *testing.T) {
	got := Dedupe([]string{"AAPL", "MSFT", "AAPL", "SPY", "MSFT"})
	assert.Equal(t, []string{"AAPL", "MSFT", "SPY"}, got)
}

func TestDedupe_AliasesCollapseAfterNormalize(t *testing.T) {
	got := Dedupe(NormalizeAll([]string{"BRK.B", "BRK-B", "brk/b"}))
	assert.Equal(t, []string{"BRK.B"}, got)
}

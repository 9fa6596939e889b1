package isbn

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTo13(t *testing.T) {
	assert.Equal(t, "9780306406157", To13("0306406152"))
	assert.Equal(t, "9784798157573", To13("4798157573"))
	assert.Equal(t, "9780140449112", To13("0140449116"))
	assert.Equal(t, "9780201616224", To13("020161622X"))
	assert.Equal(t, "", To13(""))
	assert.Equal(t, "", To13("123"))
	assert.Equal(t, "", To13("abcdefghij"))
}

func TestTo13_Deterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		assert.Equal(t, "9780306406157", To13("0306406152"))
	}
}

func TestClean(t *testing.T) {
	assert.Equal(t, "4798157573", Clean("4-7981-5757-3"))
	assert.Equal(t, "020161622X", Clean("0-201-61622-x"))
	assert.Equal(t, "9784798157573", Clean("９７８−４７９８１５７５７３"))
	assert.Equal(t, "9784798157573", Clean("978 4798 157573"))
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"978-4-7981-5757-3", "9784798157573"},
		{"4-7981-5757-3", "9784798157573"},
		{"0306406152", "9780306406157"},
		{"020161622X", "9780201616224"},
		{"12345", ""},
		{"", ""},
		{"ISBN 978-4", ""},
		{"97847981575AB", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestFindInIdentifier(t *testing.T) {
	assert.Equal(t, "9784798157573", FindInIdentifier("ISBN: 978-4-7981-5757-3"))
	assert.Equal(t, "4798157573", FindInIdentifier("4-7981-5757-3 (pbk)"))
	assert.Equal(t, "", FindInIdentifier("JP-123"))
}

func TestFindInText(t *testing.T) {
	assert.Equal(t, "9784798157573", FindInText("注記: ISBN978-4-7981-5757-3 (上巻)"))
	assert.Equal(t, "020161622X", FindInText("see 0-201-61622-x for details"))
	assert.Equal(t, "", FindInText("頁数 123 456 7890 12"))
	assert.Equal(t, "", FindInText("no numbers here"))
}

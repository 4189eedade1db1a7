package regex

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func dummy(s string) (Matcher, error) { return nil, nil }

func TestRegistration(t *testing.T) {
	require := require.New(t)

	engines := Engines()
	require.NotNil(engines)
	number := len(engines)

	require.Equal("go", Default())

	err := Register("", dummy)
	require.Equal(true, ErrRegexNameEmpty.Is(err))
	engines = Engines()
	require.Len(engines, number)

	err = Register("go", dummy)
	require.Equal(true, ErrRegexAlreadyRegistered.Is(err))

	err = Register("nil", dummy)
	require.NoError(err)
	require.Len(Engines(), number+1)

	matcher, err := New("nil", "")
	require.NoError(err)
	require.Nil(matcher)

	_, err = New("oniguruma", "")
	require.True(ErrRegexNotFound.Is(err))
}

func TestDefault(t *testing.T) {
	require := require.New(t)

	SetDefault("default")
	require.Equal("default", Default())

	SetDefault("")
	require.Equal("go", Default())
}

func TestMatcher(t *testing.T) {
	for _, name := range Engines() {
		if name == "nil" {
			continue
		}

		t.Run(name, func(t *testing.T) {
			m, err := New(name, "a{3}")
			require.NoError(t, err)

			require.Equal(t, true, m.Match("ooaaaoo"))
			require.Equal(t, false, m.Match("ooaaoo"))
		})
	}
}

func TestCompile(t *testing.T) {
	require := require.New(t)

	m1, err := Compile("^a+$")
	require.NoError(err)
	m2, err := Compile("^a+$")
	require.NoError(err)
	require.True(m1 == m2)
	require.True(m1.Match("aaa"))

	_, err = Compile("(")
	require.Error(err)
}

func TestFromLike(t *testing.T) {
	testCases := []struct {
		pattern         string
		caseInsensitive bool
		text            string
		expected        bool
	}{
		{"a%", false, "abc", true},
		{"a_", false, "abc", false},
		{"a_c", false, "abc", true},
		{"a.c", false, "abc", false},
		{"a.c", false, "a.c", true},
		{`100\%`, false, "100%", true},
		{`100\%`, false, "1000", false},
		{"%\n%", false, "a\nb", true},
		{"A%", false, "abc", false},
		{"A%", true, "abc", true},
	}

	for _, tt := range testCases {
		t.Run(tt.pattern, func(t *testing.T) {
			m, err := Compile(FromLike(tt.pattern, tt.caseInsensitive))
			require.NoError(t, err)
			require.Equal(t, tt.expected, m.Match(tt.text))
		})
	}
}

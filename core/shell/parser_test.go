package shell

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	cases := map[string]struct {
		line string
		want []string
	}{
		"empty":       {"", nil},
		"blank":       {"   \t ", nil},
		"single":      {"ls", []string{"ls"}},
		"args":        {"ls -l /tmp", []string{"ls", "-l", "/tmp"}},
		"extra-space": {"  echo   a  b ", []string{"echo", "a", "b"}},
		"no-quoting":  {`echo "a b"`, []string{"echo", `"a`, `b"`}},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			got := Tokenize(tc.line)
			if len(tc.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParse(t *testing.T) {
	cases := map[string]struct {
		line string
		want []StageSpec
	}{
		"empty": {
			line: "",
			want: nil,
		},
		"simple": {
			line: "ls -l /tmp",
			want: []StageSpec{{Args: []string{"ls", "-l", "/tmp"}}},
		},
		"three-stages": {
			line: "a | b | c",
			want: []StageSpec{
				{Args: []string{"a"}},
				{Args: []string{"b"}},
				{Args: []string{"c"}},
			},
		},
		"redirect-out": {
			line: "echo hi > /tmp/out.txt",
			want: []StageSpec{{
				Args:      []string{"echo", "hi"},
				Redirects: []Redirect{{Stream: Stdout, Path: "/tmp/out.txt"}},
			}},
		},
		"redirect-err": {
			line: "ls nope 2> err.log",
			want: []StageSpec{{
				Args:      []string{"ls", "nope"},
				Redirects: []Redirect{{Stream: Stderr, Path: "err.log"}},
			}},
		},
		"redirect-mid-args": {
			line: "echo a > out b",
			want: []StageSpec{{
				Args:      []string{"echo", "a", "b"},
				Redirects: []Redirect{{Stream: Stdout, Path: "out"}},
			}},
		},
		"redirect-before-pipe-binds-left": {
			line: "echo a > first | cat 2> second",
			want: []StageSpec{
				{
					Args:      []string{"echo", "a"},
					Redirects: []Redirect{{Stream: Stdout, Path: "first"}},
				},
				{
					Args:      []string{"cat"},
					Redirects: []Redirect{{Stream: Stderr, Path: "second"}},
				},
			},
		},
		"repeated-redirects-kept-in-order": {
			line: "echo a > one > two",
			want: []StageSpec{{
				Args: []string{"echo", "a"},
				Redirects: []Redirect{
					{Stream: Stdout, Path: "one"},
					{Stream: Stdout, Path: "two"},
				},
			}},
		},
		"glued-operators-are-arguments": {
			line: "echo a|b >c",
			want: []StageSpec{{Args: []string{"echo", "a|b", ">c"}}},
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			got, err := ParseLine(tc.line)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)

			for _, stage := range got {
				for _, arg := range stage.Args {
					assert.False(t, isOperator(arg), "operator %q left in args", arg)
				}
			}
		})
	}
}

func TestParse_syntaxErrors(t *testing.T) {
	cases := map[string]struct {
		line  string
		token string
	}{
		"trailing-pipe":      {"ls |", "|"},
		"leading-pipe":       {"| ls", "|"},
		"double-pipe":        {"ls | | wc", "|"},
		"redirect-no-file":   {"echo hi >", ">"},
		"err-redirect-no-fi": {"echo hi 2>", "2>"},
		"redirect-to-pipe":   {"echo hi > | wc", "|"},
		"redirect-only":      {"> out", ""},
		"redirect-only-pipe": {"2> err | wc", "|"},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			stages, err := ParseLine(tc.line)
			assert.Nil(t, stages)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrSyntax))

			var syntaxErr *SyntaxError
			require.True(t, errors.As(err, &syntaxErr))
			assert.Equal(t, tc.token, syntaxErr.Token)
		})
	}
}

func TestStageSpec_String(t *testing.T) {
	stages, err := ParseLine("ls -l > out 2> err")
	require.NoError(t, err)
	require.Len(t, stages, 1)

	assert.Equal(t, "ls", stages[0].Name())
	assert.Equal(t, "ls -l > out 2> err", stages[0].String())
	assert.Equal(t, "", StageSpec{}.Name())
}

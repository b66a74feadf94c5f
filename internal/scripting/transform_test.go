package scripting

import (
	"testing"

	"github.com/joeycumines/snipbox/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDowngrade(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		name string
		lang storage.Language
		in   string
		want string
	}{
		{
			name: "javascript untouched",
			lang: storage.LanguageJavaScript,
			in:   `const label = cond ? a : b; function f(x: number) {}`,
			want: `const label = cond ? a : b; function f(x: number) {}`,
		},
		{
			name: "parameter and return annotations",
			lang: storage.LanguageTypeScript,
			in:   `function greet(name: string, n: number): string { return name }`,
			want: `function greet(name, n) { return name }`,
		},
		{
			name: "generic and array annotations",
			lang: storage.LanguageTypeScript,
			in:   `function f(xs: Array<number>, ys: string[]) {}`,
			want: `function f(xs, ys) {}`,
		},
		{
			name: "access modifiers",
			lang: storage.LanguageTypeScript,
			in:   `class A { constructor(private a, public b, protected c) {} }`,
			want: `class A { constructor(a, b, c) {} }`,
		},
		{
			name: "interface declaration",
			lang: storage.LanguageTypeScript,
			in:   "interface User { name: string; age: number; }\nconst u = 1;",
			want: "\nconst u = 1;",
		},
		{
			name: "implements clause",
			lang: storage.LanguageTypeScript,
			in:   `class Impl implements Shape { }`,
			want: `class Impl  { }`,
		},
		{
			name: "variable annotation",
			lang: storage.LanguageTypeScript,
			in:   `let count: number = 3;`,
			want: `let count = 3;`,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Downgrade(tc.lang, tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

// The rewrite is textual, so object literal values that look like type
// annotations are stripped too.
func TestDowngrade_KnownLimitation(t *testing.T) {
	t.Parallel()
	got, err := Downgrade(storage.LanguageTypeScript, `const o = {a: b, c: d}`)
	require.NoError(t, err)
	assert.Equal(t, `const o = {a, c: d}`, got)
}

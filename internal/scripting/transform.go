package scripting

import (
	"fmt"
	"time"

	"github.com/dlclark/regexp2"
	"github.com/joeycumines/snipbox/internal/storage"
)

// transformTimeout bounds each rewrite; snippet text is untrusted and regexp2
// backtracks.
const transformTimeout = 2 * time.Second

// typeRewrites strips TypeScript-only syntax, in order: type annotations,
// access modifiers, interface declarations and implements clauses. This is a
// textual heuristic, not a parser, so valid TypeScript can still come out as
// invalid JavaScript (object literal values such as {a: b} lose their value,
// generics and unions survive). The evaluator reports what it cannot run.
var typeRewrites = []*regexp2.Regexp{
	mustCompile(`:\s*[a-zA-Z<>[\]]+(?=[\s,)])`),
	mustCompile(`public\s+|private\s+|protected\s+`),
	mustCompile(`interface\s+\w+\s*\{[^}]*\}`),
	mustCompile(`implements\s+\w+`),
}

func mustCompile(expr string) *regexp2.Regexp {
	re := regexp2.MustCompile(expr, regexp2.ECMAScript)
	re.MatchTimeout = transformTimeout
	return re
}

// Downgrade returns source rewritten so the JavaScript evaluator can run it.
// JavaScript passes through unchanged.
func Downgrade(lang storage.Language, source string) (string, error) {
	if lang != storage.LanguageTypeScript {
		return source, nil
	}
	for _, re := range typeRewrites {
		out, err := re.Replace(source, "", -1, -1)
		if err != nil {
			return "", &ExecutionError{
				Kind:    ErrTransform,
				Message: fmt.Sprintf("typescript downgrade: %v", err),
				Err:     err,
			}
		}
		source = out
	}
	return source, nil
}

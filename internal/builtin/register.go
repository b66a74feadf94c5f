// Package builtin wires the native Go modules that snippets can load with
// require.
package builtin

import (
	"github.com/dop251/goja_nodejs/require"

	"github.com/joeycumines/snipbox/internal/builtin/text"
)

// ModulePrefix namespaces every native module.
const ModulePrefix = "snip:"

// Register registers all native modules with the provided registry.
func Register(registry *require.Registry) {
	registry.RegisterNativeModule(ModulePrefix+"text", text.Require)
}

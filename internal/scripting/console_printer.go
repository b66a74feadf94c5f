package scripting

import (
	"log/slog"

	"github.com/dop251/goja_nodejs/console"
)

// consolePrinter routes the host console to the HostLogger. It is what the
// interceptor forwards to, so snippet output stays visible in host logs.
type consolePrinter struct {
	logger *slog.Logger
}

var _ console.Printer = (*consolePrinter)(nil)

func newConsolePrinter(l *HostLogger) *consolePrinter {
	return &consolePrinter{logger: l.Slog().With(slog.String("source", "console"))}
}

func (p *consolePrinter) Log(s string)   { p.logger.Info(s) }
func (p *consolePrinter) Warn(s string)  { p.logger.Warn(s) }
func (p *consolePrinter) Error(s string) { p.logger.Error(s) }

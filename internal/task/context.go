package task

import (
	"context"
	"fmt"
)

// Context is the emission handle a unit of work receives. It satisfies
// plugin.TaskContext so sync plugins can narrate through it.
type Context struct {
	ctx      context.Context
	notifier Notifier
}

// Context returns the context the work was dispatched with.
func (c *Context) Context() context.Context {
	return c.ctx
}

// Log emits one log line.
func (c *Context) Log(line string) {
	c.notifier.Log(line)
}

// Logf emits one formatted log line.
func (c *Context) Logf(format string, args ...any) {
	c.notifier.Log(fmt.Sprintf(format, args...))
}

// Progress emits percent, clamped to 0..100.
func (c *Context) Progress(percent int) {
	c.notifier.Progress(clamp(percent))
}

// Error emits a non-fatal error the host may surface.
func (c *Context) Error(title, message string) {
	c.notifier.Error(title, message)
}

func clamp(percent int) int {
	switch {
	case percent < 0:
		return 0
	case percent > 100:
		return 100
	default:
		return percent
	}
}

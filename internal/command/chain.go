package command

import (
	"fmt"

	"go.uber.org/zap"
)

// Chain is a Command that runs its sub-commands in order.
//
// Execution stops at the first step that errors or reports
// Succeeded == false. Steps that completed are then walked back in reverse
// order: each one that is a Filter sees the final result and, when a step
// errored, that error. The first step is never walked back. Errors from a
// step are returned to the caller after the walkback; errors from a
// filter are logged and do not stop the remaining walkback.
//
// The sub-command list must be complete before the chain is first
// executed. After that the chain is safe for concurrent use as long as
// its sub-commands are.
type Chain struct {
	commands []Command
	logger   *zap.Logger
}

// NewChain creates a chain of commands.
func NewChain(logger *zap.Logger, commands ...Command) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{
		commands: append([]Command(nil), commands...),
		logger:   logger.Named("chain"),
	}
}

// Add appends a command.
func (c *Chain) Add(cmd Command) *Chain {
	c.commands = append(c.commands, cmd)
	return c
}

// AddNamed appends a command that is looked up in registry on first use.
func (c *Chain) AddNamed(registry *Registry, name string) *Chain {
	return c.Add(NewProxy(registry, name))
}

// Len returns the number of sub-commands.
func (c *Chain) Len() int { return len(c.commands) }

// Execute runs the chain.
func (c *Chain) Execute(ctx *Context) (*Result, error) {
	lastSuccess := 0
	result := &Result{Succeeded: false}

	for i, cmd := range c.commands {
		next, err := Run(cmd, ctx)
		if err != nil {
			c.logger.Warn("Command failed during chain processing",
				zap.Int("index", i),
				zap.String("command", commandName(cmd)),
				zap.Error(err))
			c.walkback(ctx, lastSuccess, result, err)
			return nil, err
		}
		if next == nil {
			next = &Result{}
		}
		result = next
		lastSuccess++
		if !result.Succeeded {
			break
		}
	}

	if lastSuccess > 0 {
		c.walkback(ctx, lastSuccess, result, nil)
	}
	return result, nil
}

func (c *Chain) walkback(ctx *Context, lastSuccess int, result *Result, cause error) {
	for i := lastSuccess - 1; i > 0; i-- {
		f, ok := c.commands[i].(Filter)
		if !ok {
			continue
		}
		if err := RunFilter(f, ctx, result, cause); err != nil {
			c.logger.Error("Filter failed during walkback",
				zap.Int("index", i),
				zap.String("command", commandName(c.commands[i])),
				zap.Error(err))
		}
	}
}

// Authorize denies access as soon as one Authorized sub-command does.
func (c *Chain) Authorize(ctx *Context) bool {
	for _, cmd := range c.commands {
		if a, ok := cmd.(Authorized); ok && !a.Authorize(ctx) {
			return false
		}
	}
	return true
}

func commandName(cmd Command) string {
	if p, ok := cmd.(*Proxy); ok {
		return p.Name()
	}
	return fmt.Sprintf("%T", cmd)
}

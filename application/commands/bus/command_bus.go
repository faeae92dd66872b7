// Package bus provides the reflect-based command dispatch used by the
// engine's write-side operations, generalized from the teacher's
// CommandBus down to the concerns AMP actually needs (no unit-of-work: the
// store already guarantees single-record atomicity per spec §5).
package bus

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Command is anything the bus can dispatch; every command validates itself
// before a handler ever sees it.
type Command interface {
	Validate() error
}

// CommandHandler executes one command type and returns its result.
type CommandHandler interface {
	Handle(ctx context.Context, cmd Command) (interface{}, error)
}

type CommandHandlerFunc func(ctx context.Context, cmd Command) (interface{}, error)

func (f CommandHandlerFunc) Handle(ctx context.Context, cmd Command) (interface{}, error) {
	return f(ctx, cmd)
}

// CommandBus dispatches a command to its registered handler by reflect type.
type CommandBus struct {
	mu       sync.RWMutex
	handlers map[reflect.Type]CommandHandler
	logger   *zap.Logger
}

func NewCommandBus(logger *zap.Logger) *CommandBus {
	return &CommandBus{handlers: make(map[reflect.Type]CommandHandler), logger: logger}
}

func (b *CommandBus) Register(cmdSample Command, handler CommandHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[reflect.TypeOf(cmdSample)] = handler
}

// Send validates cmd, locates its handler, and executes it, logging timing
// and outcome the way the teacher's LoggingMiddleware did.
func (b *CommandBus) Send(ctx context.Context, cmd Command) (interface{}, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	handler, ok := b.handlers[reflect.TypeOf(cmd)]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no handler registered for command type %T", cmd)
	}

	start := time.Now()
	cmdName := reflect.TypeOf(cmd).Elem().Name()
	result, err := handler.Handle(ctx, cmd)
	if b.logger != nil {
		fields := []zap.Field{zap.String("command", cmdName), zap.Duration("elapsed", time.Since(start))}
		if err != nil {
			b.logger.Warn("command failed", append(fields, zap.Error(err))...)
		} else {
			b.logger.Debug("command succeeded", fields...)
		}
	}
	return result, err
}

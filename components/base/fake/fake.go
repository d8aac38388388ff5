// Package fake implements a fake base that records the commands it is given.
package fake

import (
	"context"
	"sync"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/depthview/depthview/components/base"
	"github.com/depthview/depthview/logging"
	"github.com/depthview/depthview/resource"
)

// Model is the registered model name.
const Model = resource.Model("fake")

func init() {
	base.Register(Model, resource.Registration[base.Base, *Config]{Constructor: NewBase})
}

// ErrInjected is returned by SetVelocity when a failure has been injected.
var ErrInjected = errors.New("injected base failure")

// Config is the fake base's attributes.
type Config struct {
	// FailEvery makes every n-th SetVelocity call fail. Zero never fails.
	FailEvery int `json:"fail_every,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if cfg.FailEvery < 0 {
		return errors.Errorf("%s: fail_every must be non-negative", path)
	}
	return nil
}

// Command is one recorded SetVelocity call.
type Command struct {
	Linear  r3.Vector
	Angular r3.Vector
	Extra   map[string]interface{}
}

// Base is a fake base that records what it was provided in each method.
type Base struct {
	name   string
	logger logging.Logger

	mu         sync.Mutex
	failEvery  int
	calls      int
	failNext   error
	commands   []Command
	StopCount  int
	CloseCount int
}

// NewBase instantiates a new base of the fake model type.
func NewBase(ctx context.Context, conf resource.Config, logger logging.Logger) (base.Base, error) {
	native, err := resource.NativeConfig[*Config](conf)
	if err != nil {
		return nil, err
	}
	return &Base{name: conf.Name, logger: logger, failEvery: native.FailEvery}, nil
}

// SetVelocity records the command unless a failure is due.
func (b *Base) SetVelocity(ctx context.Context, linear, angular r3.Vector, extra map[string]interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if err := b.failNext; err != nil {
		b.failNext = nil
		return err
	}
	if b.failEvery > 0 && b.calls%b.failEvery == 0 {
		return ErrInjected
	}
	b.commands = append(b.commands, Command{Linear: linear, Angular: angular, Extra: extra})
	return nil
}

// Stop records a stop.
func (b *Base) Stop(ctx context.Context, extra map[string]interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.StopCount++
	return nil
}

// FailNext makes the next SetVelocity call return err.
func (b *Base) FailNext(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failNext = err
}

// Commands returns the recorded commands.
func (b *Base) Commands() []Command {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Command(nil), b.commands...)
}

// Stops returns how many times Stop was called.
func (b *Base) Stops() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.StopCount
}

// Close does nothing.
func (b *Base) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.CloseCount++
	return nil
}

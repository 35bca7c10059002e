package trainer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/neurlang/blazepose/config"
	"github.com/neurlang/blazepose/experiment"
)

// ErrUnknownTrainer is returned when no trainer is registered under a name.
var ErrUnknownTrainer = errors.New("trainer: unknown trainer")

// Func trains a model as configured, writing its outputs into run.
type Func func(ctx context.Context, cfg *config.Config, run *experiment.Run) error

var (
	mut      sync.RWMutex
	registry = make(map[string]Func)
)

// Register makes a trainer available by name. It panics when the name is
// taken or f is nil.
func Register(name string, f Func) {
	mut.Lock()
	defer mut.Unlock()
	if f == nil {
		panic("trainer: Register trainer is nil")
	}
	if _, dup := registry[name]; dup {
		panic("trainer: Register called twice for trainer " + name)
	}
	registry[name] = f
}

// Lookup finds a registered trainer.
func Lookup(name string) (Func, error) {
	mut.RLock()
	defer mut.RUnlock()
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTrainer, name)
	}
	return f, nil
}

// Names lists the registered trainers in order.
func Names() []string {
	mut.RLock()
	defer mut.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Train runs the trainer named by cfg.Trainer.
func Train(ctx context.Context, cfg *config.Config, run *experiment.Run) error {
	f, err := Lookup(cfg.Trainer)
	if err != nil {
		return err
	}
	return f(ctx, cfg, run)
}

package registry

import (
	"context"
	"sync"

	"github.com/oneconcern/podbundle/pkg/core/status"
	"github.com/oneconcern/podbundle/pkg/model"
	"github.com/oneconcern/podbundle/pkg/storage"
	"go.uber.org/zap"
)

// InstructionEvent notifies that a layout has a new instruction
type InstructionEvent struct {
	Instruction model.Instruction
	Previous    *model.Instruction
}

// InstructionListener consumes instruction events
type InstructionListener func(context.Context, InstructionEvent) error

// Instructions is the instruction registry: it maps (layout, type) to the latest instruction
type Instructions struct {
	*options
	values *table[model.Instruction]

	listenersMx sync.RWMutex
	listeners   []InstructionListener
}

// NewInstructions builds an empty instruction registry
func NewInstructions(opts ...Option) *Instructions {
	o := defaultOptions()
	for _, apply := range opts {
		apply(o)
	}
	return &Instructions{
		options: o,
		values:  newTable[model.Instruction](o.shards),
	}
}

// Subscribe registers a listener, called after each publish
func (r *Instructions) Subscribe(listener InstructionListener) {
	r.listenersMx.Lock()
	defer r.listenersMx.Unlock()
	r.listeners = append(r.listeners, listener)
}

// PublishInstruction replaces the instruction of a layout, then notifies listeners
func (r *Instructions) PublishInstruction(ctx context.Context, layout string, typ model.AssetType, tags []string) (model.Instruction, error) {
	instruction, err := model.NewInstruction(layout, typ, tags)
	if err != nil {
		return model.Instruction{}, err
	}

	var commit func() error
	if r.persist != nil {
		commit = func() error {
			return r.save(ctx, instruction)
		}
	}

	typ = instruction.Type
	previous, had, err := r.values.update(registryKey(typ, instruction.Layout), instruction, commit)
	if err != nil {
		return model.Instruction{}, err
	}
	publishCounter.WithLabelValues("instructions", string(typ)).Inc()
	r.l.Info("instruction published",
		zap.String("layout", instruction.Layout), zap.Stringer("type", typ), zap.Strings("tags", instruction.Tags))

	event := InstructionEvent{Instruction: instruction}
	if had {
		event.Previous = &previous
	}
	return instruction, r.notify(ctx, event)
}

func (r *Instructions) notify(ctx context.Context, event InstructionEvent) error {
	r.listenersMx.RLock()
	listeners := r.listeners
	r.listenersMx.RUnlock()

	var first error
	for _, listener := range listeners {
		if err := listener(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// CurrentInstruction returns the latest instruction of a layout
func (r *Instructions) CurrentInstruction(layout string, typ model.AssetType) (model.Instruction, bool) {
	return r.values.get(registryKey(typ, layout))
}

// Range iterates over the current instructions, in no particular order
func (r *Instructions) Range(fn func(model.Instruction) bool) {
	r.values.rangeAll(func(_ string, instruction model.Instruction) bool {
		return fn(instruction)
	})
}

func (r *Instructions) save(ctx context.Context, instruction model.Instruction) error {
	data, err := model.JSON.Marshal(instruction)
	if err != nil {
		return status.ErrStorage.Wrap(err)
	}
	key := model.GetArchivePathToInstruction(instruction.Type, instruction.Layout)
	if err := storage.PutBytes(ctx, r.persist, key, data, storage.OverWrite); err != nil {
		return status.ErrStorage.WrapWithLog(r.l, err, zap.String("layout", instruction.Layout))
	}
	return nil
}

// Restore loads the persisted instructions, without notifying listeners
func (r *Instructions) Restore(ctx context.Context) error {
	if r.persist == nil {
		return nil
	}
	instructions, err := restoreAll[model.Instruction](ctx, r.persist, model.GetArchivePathPrefixToInstructions)
	if err != nil {
		return err
	}
	for _, instruction := range instructions {
		_, _, _ = r.values.update(registryKey(instruction.Type, instruction.Layout), instruction, nil)
	}
	r.l.Info("instruction registry restored", zap.Int("instructions", len(instructions)))
	return nil
}

package join

import (
	"context"
	"sort"
	"sync"

	"github.com/oneconcern/podbundle/pkg/model"
	"github.com/oneconcern/podbundle/pkg/registry"
	"go.uber.org/zap"
)

// Trigger is called with the manifest of a new bundle identity.
// It must not wait for the bundle to be built.
type Trigger func(context.Context, model.Manifest) error

// State of an instruction in the join
type State string

const (
	// Unknown means no instruction was published for the layout
	Unknown State = "unknown"
	// Pending means at least one tag has no feed yet
	Pending State = "pending"
	// Satisfied means every tag resolves to a feed
	Satisfied State = "satisfied"
)

// Status reports how an instruction joins with the feeds
type Status struct {
	Layout   string          `json:"layout"`
	Type     model.AssetType `json:"type"`
	State    State           `json:"state"`
	Tags     []string        `json:"tags"`
	Missing  []string        `json:"missing,omitempty"`
	Identity string          `json:"id,omitempty"`
	File     string          `json:"file,omitempty"`
}

type layoutState struct {
	tags     []string
	missing  []string
	identity string
	seq      uint64
}

// planned is a trigger decided under the type lock and run after it is released
type planned struct {
	layout   string
	typ      model.AssetType
	state    *layoutState
	seq      uint64
	previous string
	manifest model.Manifest
}

// typeState holds the join for one asset type
type typeState struct {
	mx       sync.Mutex
	interest map[string]map[string]struct{} // tag → layouts
	layouts  map[string]*layoutState
}

func newTypeState() *typeState {
	return &typeState{
		interest: make(map[string]map[string]struct{}),
		layouts:  make(map[string]*layoutState),
	}
}

// Engine is the optimistic join engine
type Engine struct {
	feeds        *registry.Feeds
	instructions *registry.Instructions
	trigger      Trigger
	types        map[model.AssetType]*typeState
	l            *zap.Logger
}

// New builds a join engine and subscribes it to the registries
func New(feeds *registry.Feeds, instructions *registry.Instructions, trigger Trigger, opts ...Option) *Engine {
	e := &Engine{
		feeds:        feeds,
		instructions: instructions,
		trigger:      trigger,
		types:        make(map[model.AssetType]*typeState, len(model.AssetTypes)),
		l:            zap.NewNop(),
	}
	for _, typ := range model.AssetTypes {
		e.types[typ] = newTypeState()
	}
	for _, apply := range opts {
		apply(e)
	}

	feeds.Subscribe(e.onFeed)
	instructions.Subscribe(e.onInstruction)
	return e
}

func (e *Engine) onInstruction(ctx context.Context, event registry.InstructionEvent) error {
	typ := event.Instruction.Type
	ts, ok := e.types[typ]
	if !ok {
		e.l.Warn("ignoring instruction of unknown type", zap.String("layout", event.Instruction.Layout), zap.Stringer("type", typ))
		return nil
	}

	ts.mx.Lock()
	p := e.evaluate(ts, event.Instruction.Layout, typ)
	ts.mx.Unlock()

	if p == nil {
		return nil
	}
	return e.run(ctx, ts, p)
}

func (e *Engine) onFeed(ctx context.Context, event registry.FeedEvent) error {
	ts, ok := e.types[event.Type]
	if !ok {
		e.l.Warn("ignoring feed of unknown type", zap.String("tag", event.Tag), zap.Stringer("type", event.Type))
		return nil
	}

	ts.mx.Lock()
	interested := make([]string, 0, len(ts.interest[event.Tag]))
	for layout := range ts.interest[event.Tag] {
		interested = append(interested, layout)
	}
	sort.Strings(interested)

	plans := make([]*planned, 0, len(interested))
	for _, layout := range interested {
		if p := e.evaluate(ts, layout, event.Type); p != nil {
			plans = append(plans, p)
		}
	}
	ts.mx.Unlock()

	var first error
	for _, p := range plans {
		if err := e.run(ctx, ts, p); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// evaluate recomputes the identity of a layout from the current registry values.
// It must be called with the type lock held. A new identity is recorded right away
// and returned as a plan, to be triggered once the lock is released.
func (e *Engine) evaluate(ts *typeState, layout string, typ model.AssetType) *planned {
	instruction, ok := e.instructions.CurrentInstruction(layout, typ)
	if !ok {
		return nil
	}

	state := ts.index(layout, instruction.Tags)
	feedIDs, missing := e.feeds.Resolve(instruction.Tags, typ)
	state.missing = missing

	lg := e.l.With(zap.String("layout", layout), zap.Stringer("type", typ))
	if len(missing) > 0 {
		evaluationsCounter.WithLabelValues(string(typ), "pending").Inc()
		lg.Debug("instruction pending", zap.Strings("missing", missing))
		return nil
	}

	manifest := model.NewManifest(typ, feedIDs)
	if manifest.Identity == state.identity {
		evaluationsCounter.WithLabelValues(string(typ), "unchanged").Inc()
		return nil
	}

	state.seq++
	p := &planned{
		layout:   layout,
		typ:      typ,
		state:    state,
		seq:      state.seq,
		previous: state.identity,
		manifest: manifest,
	}
	state.identity = manifest.Identity
	return p
}

// run triggers a planned identity without holding the type lock.
//
// When the trigger fails, the layout goes back to its previous identity unless a newer
// evaluation replaced it meanwhile, so that the next publish retries.
func (e *Engine) run(ctx context.Context, ts *typeState, p *planned) error {
	lg := e.l.With(zap.String("layout", p.layout), zap.Stringer("type", p.typ), zap.String("identity", p.manifest.Identity))

	if err := e.trigger(ctx, p.manifest); err != nil {
		evaluationsCounter.WithLabelValues(string(p.typ), "failed").Inc()
		lg.Warn("could not trigger bundle build", zap.Error(err))

		ts.mx.Lock()
		if p.state.seq == p.seq {
			p.state.identity = p.previous
		}
		ts.mx.Unlock()
		return err
	}

	evaluationsCounter.WithLabelValues(string(p.typ), "triggered").Inc()
	lg.Info("instruction satisfied", zap.String("previous", p.previous))
	return nil
}

// index records the interest of a layout in its current tags
func (ts *typeState) index(layout string, tags []string) *layoutState {
	state, ok := ts.layouts[layout]
	if !ok {
		state = &layoutState{}
		ts.layouts[layout] = state
	}

	for _, tag := range state.tags {
		if layouts, ok := ts.interest[tag]; ok {
			delete(layouts, layout)
			if len(layouts) == 0 {
				delete(ts.interest, tag)
			}
		}
	}
	for _, tag := range tags {
		layouts, ok := ts.interest[tag]
		if !ok {
			layouts = make(map[string]struct{})
			ts.interest[tag] = layouts
		}
		layouts[layout] = struct{}{}
	}

	state.tags = append(state.tags[:0:0], tags...)
	return state
}

// Resync evaluates every current instruction, e.g. after the registries are restored
func (e *Engine) Resync(ctx context.Context) error {
	var instructions []model.Instruction
	e.instructions.Range(func(instruction model.Instruction) bool {
		instructions = append(instructions, instruction)
		return true
	})

	var first error
	for _, instruction := range instructions {
		ts, ok := e.types[instruction.Type]
		if !ok {
			continue
		}
		ts.mx.Lock()
		p := e.evaluate(ts, instruction.Layout, instruction.Type)
		ts.mx.Unlock()
		if p == nil {
			continue
		}
		if err := e.run(ctx, ts, p); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Current returns the latest identity of a layout
func (e *Engine) Current(layout string, typ model.AssetType) (string, bool) {
	ts, ok := e.types[typ]
	if !ok {
		return "", false
	}
	ts.mx.Lock()
	defer ts.mx.Unlock()

	state, ok := ts.layouts[layout]
	if !ok || state.identity == "" {
		return "", false
	}
	return state.identity, true
}

// Status reports how the instruction of a layout joins with the feeds
func (e *Engine) Status(layout string, typ model.AssetType) Status {
	st := Status{Layout: layout, Type: typ, State: Unknown}
	ts, ok := e.types[typ]
	if !ok {
		return st
	}
	ts.mx.Lock()
	defer ts.mx.Unlock()

	state, ok := ts.layouts[layout]
	if !ok {
		return st
	}

	st.Tags = append([]string{}, state.tags...)
	if len(state.missing) > 0 {
		st.State = Pending
		st.Missing = append([]string{}, state.missing...)
	} else if state.identity != "" {
		st.State = Satisfied
	} else {
		st.State = Pending
	}
	if state.identity != "" {
		st.Identity = state.identity
		st.File = model.BundleFile(state.identity, typ)
	}
	return st
}

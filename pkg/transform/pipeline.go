package transform

import (
	"bytes"
	"sort"
	"strconv"
	"strings"

	"github.com/oneconcern/podbundle/pkg/core/status"
	"github.com/oneconcern/podbundle/pkg/model"
	"go.uber.org/zap"
)

// Pipeline transforms and assembles bundles for a fixed build mode
type Pipeline struct {
	mode model.Mode
	l    *zap.Logger
}

// New builds a pipeline for some build mode
func New(mode model.Mode, opts ...Option) *Pipeline {
	p := &Pipeline{
		mode: model.ParseMode(string(mode)),
		l:    zap.NewNop(),
	}
	for _, apply := range opts {
		apply(p)
	}
	return p
}

// Mode of the builds
func (p *Pipeline) Mode() model.Mode {
	return p.mode
}

// Bundle transforms the files of ordered feeds into a single bundle.
//
// The output only depends on the feeds, their order and the build mode.
func (p *Pipeline) Bundle(typ model.AssetType, feeds []model.Feed) ([]byte, error) {
	for _, feed := range feeds {
		if feed.Type != typ {
			return nil, status.ErrValidation.WrapMessage("feed %s holds %s assets, not %s", feed.ID, feed.Type, typ)
		}
	}

	switch typ {
	case model.JS:
		return p.bundleJS(feeds)
	case model.CSS:
		return p.bundleCSS(feeds)
	default:
		_, err := model.ParseAssetType(string(typ))
		return nil, err
	}
}

func (p *Pipeline) bundleCSS(feeds []model.Feed) ([]byte, error) {
	seen := make(map[string]struct{})
	var buf bytes.Buffer
	for _, feed := range feeds {
		for _, file := range feed.Files {
			code, err := p.TransformFile(model.CSS, file)
			if err != nil {
				return nil, err
			}
			key := model.Hash([]byte(code))
			if _, dupe := seen[key]; dupe {
				continue
			}
			seen[key] = struct{}{}

			if p.mode == model.Production {
				buf.WriteString(strings.TrimRight(code, "\n"))
				continue
			}
			buf.WriteString(code)
			if !strings.HasSuffix(code, "\n") {
				buf.WriteByte('\n')
			}
		}
	}
	return buf.Bytes(), nil
}

// module is a transformed source file, placed in the graph of all modules of a bundle
type module struct {
	code  string
	deps  map[string]int // request → index of the required module
	entry bool
	class string // modules in the same class are interchangeable
}

func (p *Pipeline) bundleJS(feeds []model.Feed) ([]byte, error) {
	modules, err := p.collect(feeds)
	if err != nil {
		return nil, err
	}
	classify(modules)

	// keep the first occurrence of every class
	slot := make(map[string]int)
	var kept []int
	for i, m := range modules {
		if _, ok := slot[m.class]; !ok {
			slot[m.class] = len(kept)
			kept = append(kept, i)
		}
	}

	var entries []int
	scheduled := make(map[int]struct{})
	for _, m := range modules {
		if !m.entry {
			continue
		}
		id := slot[m.class]
		if _, ok := scheduled[id]; ok {
			continue
		}
		scheduled[id] = struct{}{}
		entries = append(entries, id)
	}

	definitions := make([]definition, 0, len(kept))
	for id, idx := range kept {
		m := modules[idx]
		deps := make(map[string]int, len(m.deps))
		for request, dep := range m.deps {
			deps[request] = slot[modules[dep].class]
		}
		definitions = append(definitions, definition{id: id, code: m.code, deps: deps})
	}

	code, err := assemble(definitions, entries)
	if err != nil {
		return nil, err
	}
	p.l.Debug("assembled bundle", zap.Int("modules", len(modules)), zap.Int("kept", len(kept)), zap.Int("entries", len(entries)))

	if p.mode == model.Production {
		code, err = minify(code)
		if err != nil {
			return nil, err
		}
	}
	return []byte(code), nil
}

// collect transforms all the modules of the feeds, in order, and links their dependencies
func (p *Pipeline) collect(feeds []model.Feed) ([]*module, error) {
	var modules []*module
	for _, feed := range feeds {
		index := make(map[string]int, len(feed.Files))
		first := len(modules)
		for i, file := range feed.Files {
			index[file.ID] = first + i
		}

		for _, file := range feed.Files {
			code, err := p.TransformFile(model.JS, file)
			if err != nil {
				return nil, err
			}
			m := &module{code: code, entry: file.Entry, deps: make(map[string]int, len(file.Deps))}
			for request, dep := range file.Deps {
				target, ok := index[dep]
				if !ok {
					return nil, status.ErrValidation.WrapMessage("feed %s: module %q requires unknown module %q", feed.ID, file.ID, dep)
				}
				m.deps[request] = target
			}
			modules = append(modules, m)
		}
	}
	return modules, nil
}

// classify groups modules that may be merged: same transformed code, and requests
// resolving to modules which may be merged, recursively.
//
// Classes start from the code alone and are refined with the classes of the
// dependencies until the partition is stable.
func classify(modules []*module) {
	for _, m := range modules {
		m.class = model.Hash([]byte(m.code))
	}

	classes := countClasses(modules)
	for round := 0; round < len(modules); round++ {
		refined := make([]string, len(modules))
		for i, m := range modules {
			requests := make([]string, 0, len(m.deps))
			for request := range m.deps {
				requests = append(requests, request)
			}
			sort.Strings(requests)

			var b strings.Builder
			b.WriteString(m.class)
			for _, request := range requests {
				b.WriteByte(0)
				b.WriteString(strconv.Quote(request))
				b.WriteByte(0)
				b.WriteString(modules[m.deps[request]].class)
			}
			refined[i] = model.Hash([]byte(b.String()))
		}
		for i, m := range modules {
			m.class = refined[i]
		}

		next := countClasses(modules)
		if next == classes {
			return
		}
		classes = next
	}
}

func countClasses(modules []*module) int {
	distinct := make(map[string]struct{}, len(modules))
	for _, m := range modules {
		distinct[m.class] = struct{}{}
	}
	return len(distinct)
}

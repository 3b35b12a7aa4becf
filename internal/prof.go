// Package internal holds process level helpers of the podbundle commands
package internal

import (
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"

	"github.com/oneconcern/podbundle/internal/rand"
	"github.com/oneconcern/podbundle/pkg/errors"
	"go.uber.org/zap"
)

// Profile records a cpu profile to a directory. Stop writes the cpu profile,
// then snapshots the heap and allocations.
type Profile struct {
	prefix string
	cpu    *os.File
	l      *zap.Logger
}

// StartProfile starts profiling. Every profile of a run shares a random name prefix.
func StartProfile(dir string, l *zap.Logger) (*Profile, error) {
	if l == nil {
		l = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.New("cannot create profile directory").Wrap(err)
	}
	p := &Profile{
		prefix: filepath.Join(dir, "podbundle_"+rand.LetterString(6)),
		l:      l,
	}

	f, err := os.Create(p.prefix + ".cpu.prof")
	if err != nil {
		return nil, errors.New("cannot create cpu profile").Wrap(err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		_ = f.Close()
		return nil, errors.New("cannot start cpu profile").Wrap(err)
	}
	p.cpu = f
	l.Info("profiling", zap.String("prefix", p.prefix))
	return p, nil
}

// Stop profiling
func (p *Profile) Stop() error {
	pprof.StopCPUProfile()
	if err := p.cpu.Close(); err != nil {
		return err
	}

	runtime.GC()
	for _, name := range []string{"heap", "allocs"} {
		if err := writeProf(p.prefix+"."+name+".prof", name); err != nil {
			return err
		}
	}

	mstats := new(runtime.MemStats)
	runtime.ReadMemStats(mstats)
	p.l.Info("profiles written",
		zap.String("prefix", p.prefix),
		zap.Uint64("MiB for heap (un-GC)", mstats.Alloc/1024/1024),
		zap.Uint64("MiB for heap (max ever)", mstats.HeapSys/1024/1024),
		zap.Int("num go routines", runtime.NumGoroutine()),
	)
	return nil
}

func writeProf(path string, name string) error {
	fprof, err := os.Create(path)
	if err != nil {
		return err
	}
	defer fprof.Close()
	return pprof.Lookup(name).WriteTo(fprof, 0)
}

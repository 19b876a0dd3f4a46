package codegen

import (
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/alexhholmes/pdugen/internal/analyzer"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Target is a backend and the subdirectory of the output it writes into
type Target struct {
	Backend Backend
	Dir     string
}

// Options control one generation run
type Options struct {
	OutDir  string
	Clean   bool
	Workers int // 0 means runtime.NumCPU()
}

// Report summarizes a generation run
type Report struct {
	Files   []string // written paths, sorted
	Removed int      // files deleted by clean
	Failed  []string // "backend:class" pairs that could not be rendered or written
}

// Generator renders every planned class through every target
type Generator struct {
	prog    *analyzer.Program
	targets []Target
	opts    Options
	log     *zap.Logger
}

// NewGenerator creates a new code generator
func NewGenerator(prog *analyzer.Program, opts Options, targets ...Target) *Generator {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return &Generator{
		prog:    prog,
		targets: targets,
		opts:    opts,
		log:     Logger(),
	}
}

type job struct {
	target Target
	dir    string
	plan   *analyzer.ClassPlan // nil for module files
}

// Generate writes all output. Directory setup failures abort the run. A class
// that fails to render or write is logged and reported while the others
// continue; the returned error then aggregates every such failure.
func (g *Generator) Generate() (*Report, error) {
	report := &Report{}

	root, err := ExpandAndCreateDir(g.opts.OutDir)
	if err != nil {
		return nil, err
	}

	var jobs []job
	for _, t := range g.targets {
		dir, err := ExpandAndCreateDir(filepath.Join(root, t.Dir))
		if err != nil {
			return nil, err
		}
		if g.opts.Clean {
			n, err := CleanDir(dir, g.log)
			if err != nil {
				return nil, err
			}
			report.Removed += n
		}
		for _, cp := range g.prog.Plans {
			jobs = append(jobs, job{target: t, dir: dir, plan: cp})
		}
		if _, ok := t.Backend.(ModuleBackend); ok {
			jobs = append(jobs, job{target: t, dir: dir})
		}
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs error
		sem  = make(chan struct{}, g.opts.Workers)
	)
	for _, j := range jobs {
		wg.Add(1)
		sem <- struct{}{}
		go func(j job) {
			defer wg.Done()
			defer func() { <-sem }()

			paths, err := g.run(j)

			mu.Lock()
			defer mu.Unlock()
			report.Files = append(report.Files, paths...)
			if err != nil {
				name := j.target.Backend.Name() + ":" + jobName(j)
				report.Failed = append(report.Failed, name)
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", name, err))
			}
		}(j)
	}
	wg.Wait()

	sort.Strings(report.Files)
	sort.Strings(report.Failed)
	g.log.Info("generation finished",
		zap.Int("files", len(report.Files)),
		zap.Int("removed", report.Removed),
		zap.Int("failed", len(report.Failed)))
	return report, errs
}

func jobName(j job) string {
	if j.plan == nil {
		return "module"
	}
	return j.plan.Name()
}

// run renders one job and writes its files
func (g *Generator) run(j job) ([]string, error) {
	log := g.log.With(zap.String("backend", j.target.Backend.Name()), zap.String("class", jobName(j)))

	var files []File
	var err error
	if j.plan == nil {
		files, err = j.target.Backend.(ModuleBackend).Module(g.prog)
	} else {
		files, err = j.target.Backend.Class(j.plan)
	}
	if err != nil {
		log.Error("render failed", zap.Error(err))
		return nil, err
	}

	var paths []string
	for _, f := range files {
		path, err := writeFile(j.dir, f)
		if err != nil {
			log.Error("write failed", zap.String("file", f.Name), zap.Error(err))
			return paths, err
		}
		log.Debug("wrote file", zap.String("path", path))
		paths = append(paths, path)
	}
	return paths, nil
}

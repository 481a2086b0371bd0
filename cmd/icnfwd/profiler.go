package main

import (
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/go-icn/fwd/core"
)

// profiler owns the lifecycle of the optional CPU/block/memory profiles
// the --cpu-profile/--block-profile/--mem-profile flags enable.
type profiler struct {
	cpuProfile, memProfile, blockProfile string

	cpuFile *os.File
	block   *pprof.Profile
}

func (p *profiler) String() string { return "profiler" }

// start opens the CPU profile output file and begins sampling, and
// arms the block profiler, if the corresponding flags were set.
func (p *profiler) start() error {
	if p.cpuProfile != "" {
		f, err := os.Create(p.cpuProfile)
		if err != nil {
			return err
		}
		p.cpuFile = f
		core.Log.Info(p, "profiling cpu", "out", p.cpuProfile)
		pprof.StartCPUProfile(f)
	}

	if p.blockProfile != "" {
		core.Log.Info(p, "profiling blocking operations", "out", p.blockProfile)
		runtime.SetBlockProfileRate(1)
		p.block = pprof.Lookup("block")
	}

	return nil
}

// stop flushes every enabled profile to its output file.
func (p *profiler) stop() {
	if p.block != nil {
		f, err := os.Create(p.blockProfile)
		if err != nil {
			core.Log.Error(p, "unable to open block profile output", "err", err)
		} else {
			if err := p.block.WriteTo(f, 0); err != nil {
				core.Log.Error(p, "unable to write block profile", "err", err)
			}
			f.Close()
		}
	}

	if p.memProfile != "" {
		f, err := os.Create(p.memProfile)
		if err != nil {
			core.Log.Error(p, "unable to open memory profile output", "err", err)
		} else {
			runtime.GC()
			if err := pprof.WriteHeapProfile(f); err != nil {
				core.Log.Error(p, "unable to write memory profile", "err", err)
			}
			f.Close()
		}
	}

	if p.cpuFile != nil {
		pprof.StopCPUProfile()
		p.cpuFile.Close()
	}
}

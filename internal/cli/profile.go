package cli

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/spf13/cobra"
)

// profiler writes optional CPU and heap profiles around a benchmark run.
type profiler struct {
	cpuPath string
	memPath string
	cpuFile *os.File
}

func addProfileFlags(cmd *cobra.Command) {
	cmd.Flags().String("cpuprofile", "", "Write a CPU profile to file")
	cmd.Flags().String("memprofile", "", "Write a heap profile to file after the run")
}

func newProfiler(cmd *cobra.Command) *profiler {
	cpuPath, _ := cmd.Flags().GetString("cpuprofile")
	memPath, _ := cmd.Flags().GetString("memprofile")
	return &profiler{cpuPath: cpuPath, memPath: memPath}
}

// Start begins CPU profiling if requested.
func (p *profiler) Start() error {
	if p.cpuPath == "" {
		return nil
	}
	f, err := os.Create(p.cpuPath)
	if err != nil {
		return fmt.Errorf("could not create CPU profile: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return fmt.Errorf("could not start CPU profile: %w", err)
	}
	p.cpuFile = f
	return nil
}

// Stop ends CPU profiling and writes the heap profile. Safe to call when
// nothing was requested.
func (p *profiler) Stop() error {
	if p.cpuFile != nil {
		pprof.StopCPUProfile()
		if err := p.cpuFile.Close(); err != nil {
			return fmt.Errorf("close CPU profile: %w", err)
		}
		p.cpuFile = nil
	}

	if p.memPath == "" {
		return nil
	}
	f, err := os.Create(p.memPath)
	if err != nil {
		return fmt.Errorf("could not create memory profile: %w", err)
	}
	defer f.Close()

	runtime.GC() // get up-to-date statistics
	if err := pprof.WriteHeapProfile(f); err != nil {
		return fmt.Errorf("could not write memory profile: %w", err)
	}
	return nil
}

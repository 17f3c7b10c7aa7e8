package observability

import (
	"os"
	"runtime"

	"github.com/shirou/gopsutil/process"
)

// ProcessStats is the self-report served by the health endpoint.
type ProcessStats struct {
	PID        int32
	Status     string
	CPUPercent float64
	RSSBytes   uint64
	Goroutines int
}

// ProcessProbe reads the relay's own process statistics.
type ProcessProbe struct {
	proc *process.Process
}

func NewProcessProbe() (*ProcessProbe, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	return &ProcessProbe{proc: p}, nil
}

// Stats retrieves technical metrics (memory, CPU and OS status) of the process.
func (p *ProcessProbe) Stats() (ProcessStats, error) {
	memInfo, err := p.proc.MemoryInfo()
	if err != nil {
		return ProcessStats{}, err
	}
	cpuPercent, err := p.proc.CPUPercent()
	if err != nil {
		return ProcessStats{}, err
	}
	status, err := p.proc.Status()
	if err != nil {
		return ProcessStats{}, err
	}
	return ProcessStats{
		PID:        p.proc.Pid,
		Status:     status,
		CPUPercent: cpuPercent,
		RSSBytes:   memInfo.RSS,
		Goroutines: runtime.NumGoroutine(),
	}, nil
}

package preflight

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// GPUProbe reports the CUDA device snapshot used for transcription.
type GPUProbe struct {
	Detected bool
	Name     string
	Memory   string
}

// ProbeGPU queries nvidia-smi for the first CUDA device. A missing binary or
// a failing query reports no device.
func ProbeGPU(ctx context.Context) GPUProbe {
	if _, err := exec.LookPath("nvidia-smi"); err != nil {
		return GPUProbe{}
	}

	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	cmd := exec.CommandContext(probeCtx, "nvidia-smi", "--query-gpu=name,memory.total", "--format=csv,noheader")
	output, err := cmd.Output()
	if err != nil {
		return GPUProbe{}
	}
	return parseGPUProbe(string(output))
}

func parseGPUProbe(output string) GPUProbe {
	line := strings.TrimSpace(output)
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = strings.TrimSpace(line[:idx])
	}
	if line == "" {
		return GPUProbe{}
	}
	fields := strings.SplitN(line, ",", 2)
	probe := GPUProbe{Detected: true, Name: strings.TrimSpace(fields[0])}
	if len(fields) > 1 {
		probe.Memory = strings.TrimSpace(fields[1])
	}
	if probe.Name == "" {
		probe.Name = "Unknown"
	}
	return probe
}

// Detail renders a display-friendly summary for status UIs.
func (p GPUProbe) Detail() string {
	if !p.Detected {
		return "No CUDA device detected"
	}
	if p.Memory == "" {
		return p.Name
	}
	return fmt.Sprintf("%s (%s)", p.Name, p.Memory)
}

// CheckGPU turns a probe into a Result. A missing device only fails when CUDA
// transcription is requested.
func CheckGPU(ctx context.Context, cudaEnabled bool) Result {
	const name = "CUDA"
	probe := ProbeGPU(ctx)
	if probe.Detected {
		return Result{Name: name, Passed: true, Detail: probe.Detail()}
	}
	if !cudaEnabled {
		return Result{Name: name, Passed: true, Detail: "Disabled (CPU transcription)"}
	}
	return Result{Name: name, Detail: probe.Detail()}
}

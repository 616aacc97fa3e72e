// Package sysinfo reports static facts about the host for the overview page.
package sysinfo

import (
	"bufio"
	"context"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/i4arch/i4settings/internal/runner"
)

// Unknown is reported for any value that could not be determined.
const Unknown = "Unknown"

// Info describes the host.
type Info struct {
	Hostname      string `json:"hostname" yaml:"hostname"`
	OSName        string `json:"os_name" yaml:"os_name"`
	KernelVersion string `json:"kernel_version" yaml:"kernel_version"`
	CPUModel      string `json:"cpu_model" yaml:"cpu_model"`
	MemoryTotal   string `json:"memory_total" yaml:"memory_total"`
	GPUInfo       string `json:"gpu_info" yaml:"gpu_info"`
	DiskTotal     string `json:"disk_total" yaml:"disk_total"`
	DiskUsed      string `json:"disk_used" yaml:"disk_used"`
	DiskPercent   uint8  `json:"disk_percent" yaml:"disk_percent"`
}

// Collector gathers Info. The gopsutil entry points are fields so tests can
// replace them.
type Collector struct {
	Runner    runner.Runner
	Logger    *slog.Logger
	OSRelease string
	DiskPath  string

	hostInfo  func(context.Context) (*host.InfoStat, error)
	cpuInfo   func(context.Context) ([]cpu.InfoStat, error)
	memory    func(context.Context) (*mem.VirtualMemoryStat, error)
	diskUsage func(context.Context, string) (*disk.UsageStat, error)
	lookPath  func(string) (string, error)
}

// New returns a Collector reading the live system.
func New(r runner.Runner, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		Runner:    r,
		Logger:    logger.With("component", "sysinfo"),
		OSRelease: "/etc/os-release",
		DiskPath:  "/",
		hostInfo:  host.InfoWithContext,
		cpuInfo:   cpu.InfoWithContext,
		memory:    mem.VirtualMemoryWithContext,
		diskUsage: disk.UsageWithContext,
		lookPath:  exec.LookPath,
	}
}

// Collect gathers every field it can. It never fails: anything unavailable
// reads Unknown.
func (c *Collector) Collect(ctx context.Context) Info {
	info := Info{
		Hostname:      Unknown,
		OSName:        Unknown,
		KernelVersion: Unknown,
		CPUModel:      Unknown,
		MemoryTotal:   Unknown,
		GPUInfo:       Unknown,
		DiskTotal:     Unknown,
		DiskUsed:      Unknown,
	}

	if h, err := c.hostInfo(ctx); err == nil {
		info.Hostname = orUnknown(h.Hostname)
		info.KernelVersion = orUnknown(h.KernelVersion)
		info.OSName = orUnknown(strings.TrimSpace(h.Platform + " " + h.PlatformVersion))
	} else {
		c.Logger.Debug("host info unavailable", "error", err)
	}
	if name := prettyName(c.OSRelease); name != "" {
		info.OSName = name
	}

	if cpus, err := c.cpuInfo(ctx); err == nil && len(cpus) > 0 {
		info.CPUModel = orUnknown(strings.TrimSpace(cpus[0].ModelName))
	} else if err != nil {
		c.Logger.Debug("cpu info unavailable", "error", err)
	}

	if vm, err := c.memory(ctx); err == nil {
		info.MemoryTotal = humanize.IBytes(vm.Total)
	} else {
		c.Logger.Debug("memory info unavailable", "error", err)
	}

	if du, err := c.diskUsage(ctx, c.DiskPath); err == nil {
		info.DiskTotal = humanize.IBytes(du.Total)
		info.DiskUsed = humanize.IBytes(du.Used)
		info.DiskPercent = percent(du.UsedPercent)
	} else {
		c.Logger.Debug("disk usage unavailable", "path", c.DiskPath, "error", err)
	}

	info.GPUInfo = c.gpu(ctx)
	return info
}

func (c *Collector) gpu(ctx context.Context) string {
	res, err := c.Runner.Run(ctx, "lspci")
	if err != nil {
		c.Logger.Debug("lspci unavailable", "error", err)
		return Unknown
	}
	if gpu := ParseGPU(res.Lines()); gpu != "" {
		return gpu
	}
	return Unknown
}

// ParseGPU returns the device description of the first VGA or 3D controller
// in lspci output: the text after the second colon of its line.
func ParseGPU(lines []string) string {
	for _, line := range lines {
		lower := strings.ToLower(line)
		if !strings.Contains(lower, "vga") && !strings.Contains(lower, "3d") {
			continue
		}
		parts := strings.SplitN(line, ":", 3)
		if len(parts) < 3 {
			continue
		}
		return strings.TrimSpace(parts[2])
	}
	return ""
}

// prettyName reads PRETTY_NAME from an os-release file.
func prettyName(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if v, ok := strings.CutPrefix(sc.Text(), "PRETTY_NAME="); ok {
			return strings.Trim(v, `"'`)
		}
	}
	return ""
}

// ColorScheme reports "dark" when the desktop prefers a dark color scheme,
// and "light" otherwise, including when gsettings is unavailable.
func (c *Collector) ColorScheme(ctx context.Context) string {
	res, err := c.Runner.Run(ctx, "gsettings", "get", "org.gnome.desktop.interface", "color-scheme")
	if err != nil || !res.Success() {
		return "light"
	}
	if strings.Trim(strings.TrimSpace(string(res.Stdout)), "'") == "prefer-dark" {
		return "dark"
	}
	return "light"
}

// AppInstalled reports whether name resolves to an executable on PATH.
func (c *Collector) AppInstalled(name string) bool {
	if name == "" {
		return false
	}
	_, err := c.lookPath(name)
	return err == nil
}

func percent(p float64) uint8 {
	switch {
	case p <= 0:
		return 0
	case p >= 100:
		return 100
	}
	return uint8(p + 0.5)
}

func orUnknown(s string) string {
	if s == "" {
		return Unknown
	}
	return s
}

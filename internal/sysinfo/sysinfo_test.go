package sysinfo

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/stretchr/testify/assert"

	"github.com/i4arch/i4settings/internal/runner/runnertest"
)

const lspciOutput = `00:00.0 Host bridge: Intel Corporation 12th Gen Core Processor Host Bridge/DRAM Registers (rev 02)
00:02.0 VGA compatible controller: Intel Corporation Alder Lake-P GT2 [Iris Xe Graphics] (rev 0c)
01:00.0 3D controller: NVIDIA Corporation GA107M [GeForce RTX 3050 Mobile] (rev a1)
`

func testCollector(t *testing.T, fake *runnertest.Fake) *Collector {
	t.Helper()
	osRelease := filepath.Join(t.TempDir(), "os-release")
	if err := os.WriteFile(osRelease, []byte("NAME=\"Arch Linux\"\nPRETTY_NAME=\"Arch Linux\"\nID=arch\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := New(fake, nil)
	c.OSRelease = osRelease
	c.hostInfo = func(context.Context) (*host.InfoStat, error) {
		return &host.InfoStat{Hostname: "archbox", Platform: "arch", KernelVersion: "6.9.2-arch1-1"}, nil
	}
	c.cpuInfo = func(context.Context) ([]cpu.InfoStat, error) {
		return []cpu.InfoStat{{ModelName: " 12th Gen Intel(R) Core(TM) i7-1260P "}}, nil
	}
	c.memory = func(context.Context) (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{Total: 16 << 30}, nil
	}
	c.diskUsage = func(_ context.Context, path string) (*disk.UsageStat, error) {
		return &disk.UsageStat{Path: path, Total: 512 << 30, Used: 128 << 30, UsedPercent: 25.4}, nil
	}
	return c
}

func TestCollect(t *testing.T) {
	fake := runnertest.New().On("lspci", runnertest.Response{Stdout: lspciOutput})

	info := testCollector(t, fake).Collect(context.Background())
	assert.Equal(t, Info{
		Hostname:      "archbox",
		OSName:        "Arch Linux",
		KernelVersion: "6.9.2-arch1-1",
		CPUModel:      "12th Gen Intel(R) Core(TM) i7-1260P",
		MemoryTotal:   "16 GiB",
		GPUInfo:       "Intel Corporation Alder Lake-P GT2 [Iris Xe Graphics] (rev 0c)",
		DiskTotal:     "512 GiB",
		DiskUsed:      "128 GiB",
		DiskPercent:   25,
	}, info)
}

func TestCollect_Unknowns(t *testing.T) {
	c := testCollector(t, runnertest.New())
	c.OSRelease = filepath.Join(t.TempDir(), "missing")
	fail := errors.New("unsupported")
	c.hostInfo = func(context.Context) (*host.InfoStat, error) { return nil, fail }
	c.cpuInfo = func(context.Context) ([]cpu.InfoStat, error) { return nil, nil }
	c.memory = func(context.Context) (*mem.VirtualMemoryStat, error) { return nil, fail }
	c.diskUsage = func(context.Context, string) (*disk.UsageStat, error) { return nil, fail }

	info := c.Collect(context.Background())
	assert.Equal(t, Info{
		Hostname:      Unknown,
		OSName:        Unknown,
		KernelVersion: Unknown,
		CPUModel:      Unknown,
		MemoryTotal:   Unknown,
		GPUInfo:       Unknown,
		DiskTotal:     Unknown,
		DiskUsed:      Unknown,
	}, info)
}

func TestParseGPU(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  string
	}{
		{"none", []string{"00:1f.3 Audio device: Intel Corporation"}, ""},
		{"3d only", []string{"01:00.0 3D controller: NVIDIA Corporation GA107M"}, "NVIDIA Corporation GA107M"},
		{"too few colons", []string{"VGA compatible controller"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseGPU(tt.lines); got != tt.want {
				t.Errorf("ParseGPU() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestColorScheme(t *testing.T) {
	const cmd = "gsettings get org.gnome.desktop.interface color-scheme"
	tests := []struct {
		name string
		resp runnertest.Response
		want string
	}{
		{"dark", runnertest.Response{Stdout: "'prefer-dark'\n"}, "dark"},
		{"light", runnertest.Response{Stdout: "'prefer-light'\n"}, "light"},
		{"default", runnertest.Response{Stdout: "'default'\n"}, "light"},
		{"failed", runnertest.Response{ExitCode: 1, Stdout: "'prefer-dark'"}, "light"},
		{"missing", runnertest.Response{Missing: true}, "light"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(runnertest.New().On(cmd, tt.resp), nil)
			assert.Equal(t, tt.want, c.ColorScheme(context.Background()))
		})
	}
}

func TestAppInstalled(t *testing.T) {
	c := New(runnertest.New(), nil)
	c.lookPath = func(name string) (string, error) {
		if name == "kitty" {
			return "/usr/bin/kitty", nil
		}
		return "", errors.New("not found")
	}
	assert.True(t, c.AppInstalled("kitty"))
	assert.False(t, c.AppInstalled("alacritty"))
	assert.False(t, c.AppInstalled(""))
}

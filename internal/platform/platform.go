// Package platform identifies the host OS flavor so clipboard and file
// watching can pick tools that work there.
package platform

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

// Platform represents the detected platform
type Platform string

const (
	PlatformMacOS   Platform = "macos"
	PlatformLinux   Platform = "linux"
	PlatformWSL1    Platform = "wsl1"
	PlatformWSL2    Platform = "wsl2"
	PlatformWindows Platform = "windows"
	PlatformUnknown Platform = "unknown"
)

var (
	detectOnce       sync.Once
	detectedPlatform Platform
)

// Detect returns the current platform, caching the result
func Detect() Platform {
	detectOnce.Do(func() {
		detectedPlatform = detect(runtime.GOOS, os.Getenv("WSL_DISTRO_NAME"), readProcVersion())
	})
	return detectedPlatform
}

func readProcVersion() string {
	b, err := os.ReadFile("/proc/version")
	if err != nil {
		return ""
	}
	return string(b)
}

// detect classifies a platform from GOOS, the WSL distro variable and the
// contents of /proc/version.
func detect(goos, wslDistro, procVersion string) Platform {
	switch goos {
	case "darwin":
		return PlatformMacOS
	case "windows":
		return PlatformWindows
	case "linux":
	default:
		return PlatformUnknown
	}

	isWSL := wslDistro != "" || strings.Contains(strings.ToLower(procVersion), "microsoft")
	if !isWSL {
		return PlatformLinux
	}
	// WSL2 kernels report "microsoft-standard"; WSL1 reports "Microsoft".
	if strings.Contains(procVersion, "microsoft-standard") {
		return PlatformWSL2
	}
	if _, err := os.Stat("/run/WSL"); err == nil {
		return PlatformWSL2
	}
	return PlatformWSL1
}

// String returns a human-readable platform name
func (p Platform) String() string {
	switch p {
	case PlatformMacOS:
		return "macOS"
	case PlatformLinux:
		return "Linux"
	case PlatformWSL1:
		return "WSL1"
	case PlatformWSL2:
		return "WSL2"
	case PlatformWindows:
		return "Windows"
	default:
		return "Unknown"
	}
}

// CheckFsnotifySupport returns a warning when path lives on a filesystem
// where fsnotify events are unreliable (9p, NFS, CIFS, SSHFS), or "".
func CheckFsnotifySupport(path string) string {
	if runtime.GOOS != "linux" {
		return ""
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return ""
	}
	mounts, err := os.ReadFile("/proc/mounts")
	if err != nil {
		return ""
	}
	return fsWarning(mountType(string(mounts), absPath))
}

// mountType finds the filesystem type of the longest mount point that
// contains path in /proc/mounts content.
func mountType(mounts, path string) string {
	var matched, fsType string
	for _, line := range strings.Split(mounts, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		mp := fields[1]
		if strings.HasPrefix(path, mp) && len(mp) > len(matched) {
			matched, fsType = mp, fields[2]
		}
	}
	return fsType
}

func fsWarning(fsType string) string {
	const hint = "run `codex-sessions index` to refresh."
	switch {
	case fsType == "9p":
		return "transcripts on a 9p mount (WSL2 Windows filesystem): file events are not delivered; " + hint
	case fsType == "nfs" || fsType == "nfs4":
		return "transcripts on an NFS mount: file events may be missed; " + hint
	case fsType == "cifs" || fsType == "smbfs":
		return "transcripts on a CIFS/SMB mount: file events may be missed; " + hint
	case strings.HasPrefix(fsType, "fuse.sshfs"):
		return "transcripts on an SSHFS mount: file events are not delivered; " + hint
	}
	return ""
}

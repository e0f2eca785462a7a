package system

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/open-edge-platform/lume-model/internal/utils/logger"
	"github.com/open-edge-platform/lume-model/internal/utils/shell"
)

// OsReleaseFile is read first when detecting the host OS.
var OsReleaseFile = "/etc/os-release"

// HostInfo describes the machine a package manifest was produced on.
type HostInfo struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
	Arch    string `json:"arch"`
}

func (h HostInfo) String() string {
	return strings.TrimSpace(h.Name + " " + h.Version + " " + h.Arch)
}

// GetHostOsInfo reports the host OS name and version from OsReleaseFile,
// falling back to lsb_release. Arch is always set.
func GetHostOsInfo(ctx context.Context) (HostInfo, error) {
	log := logger.Logger()
	info := HostInfo{Arch: runtime.GOARCH}

	if name, version, ok := readOsRelease(OsReleaseFile); ok {
		info.Name, info.Version = name, version
		log.Debugf("detected host OS: %s", info)
		return info, nil
	}

	if !shell.IsCommandExist("lsb_release") {
		return info, fmt.Errorf("failed to detect host OS info")
	}
	output, err := shell.ExecCmd(ctx, "lsb_release -si", "", nil)
	if err != nil {
		return info, fmt.Errorf("failed to get host OS name: %w", err)
	}
	info.Name = strings.TrimSpace(output)
	output, err = shell.ExecCmd(ctx, "lsb_release -sr", "", nil)
	if err != nil {
		return info, fmt.Errorf("failed to get host OS version: %w", err)
	}
	info.Version = strings.TrimSpace(output)
	log.Debugf("detected host OS: %s", info)
	return info, nil
}

func readOsRelease(path string) (name, version string, ok bool) {
	file, err := os.Open(path)
	if err != nil {
		return "", "", false
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		key, value, found := strings.Cut(scanner.Text(), "=")
		if !found {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), "\"")
		switch key {
		case "NAME":
			name = value
		case "VERSION_ID":
			version = value
		}
	}
	return name, version, name != ""
}

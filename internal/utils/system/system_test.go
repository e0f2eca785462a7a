package system_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/open-edge-platform/lume-model/internal/utils/system"
)

func TestGetHostOsInfo(t *testing.T) {
	original := system.OsReleaseFile
	defer func() { system.OsReleaseFile = original }()

	tests := []struct {
		name     string
		content  string
		expected system.HostInfo
	}{
		{
			name: "ubuntu",
			content: `NAME="Ubuntu"
VERSION="20.04.3 LTS (Focal Fossa)"
ID=ubuntu
ID_LIKE=debian
VERSION_ID="20.04"
VERSION_CODENAME=focal`,
			expected: system.HostInfo{Name: "Ubuntu", Version: "20.04", Arch: runtime.GOARCH},
		},
		{
			name: "debian_unquoted",
			content: `NAME=Debian GNU/Linux
VERSION_ID=12`,
			expected: system.HostInfo{Name: "Debian GNU/Linux", Version: "12", Arch: runtime.GOARCH},
		},
		{
			name: "rolling_release_without_version",
			content: `NAME="Arch Linux"
ID=arch`,
			expected: system.HostInfo{Name: "Arch Linux", Arch: runtime.GOARCH},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "os-release")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			system.OsReleaseFile = path

			got, err := system.GetHostOsInfo(context.Background())
			if err != nil {
				t.Fatalf("GetHostOsInfo() error = %v", err)
			}
			if got != tt.expected {
				t.Errorf("GetHostOsInfo() = %+v, want %+v", got, tt.expected)
			}
		})
	}
}

func TestHostInfoString(t *testing.T) {
	h := system.HostInfo{Name: "Ubuntu", Version: "22.04", Arch: "amd64"}
	if got := h.String(); got != "Ubuntu 22.04 amd64" {
		t.Errorf("String() = %q", got)
	}
	if got := (system.HostInfo{Arch: "arm64"}).String(); got != "arm64" {
		t.Errorf("String() = %q", got)
	}
}

package capture

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// Defaults for the bundled PresentMon binary.
const (
	DefaultBinary  = "PresentMon.exe"
	DefaultDevPath = "src-tauri/bin/PresentMon.exe"
	ReleasesURL    = "https://github.com/GameTechDev/PresentMon/releases"
)

// ErrBinaryNotFound is returned when no resolution candidate exists.
var ErrBinaryNotFound = errors.New("capture binary not found")

// Locator resolves the capture executable. Candidates are tried in order:
// the development-relative path, <ResourceDir>/bin/<Binary>, then PATH.
type Locator struct {
	Binary      string // executable name used for the bundled path and PATH lookup
	DevPath     string // development-relative candidate
	ResourceDir string // packaged resource root; empty means the running executable's dir

	// lookPath and executable are swapped out in tests.
	lookPath   func(string) (string, error)
	executable func() (string, error)
}

// NewLocator returns a Locator with PresentMon defaults for empty fields.
func NewLocator(binary, devPath, resourceDir string) Locator {
	if binary == "" {
		binary = DefaultBinary
	}
	if devPath == "" {
		devPath = DefaultDevPath
	}
	return Locator{Binary: binary, DevPath: devPath, ResourceDir: resourceDir}
}

// Candidates lists the filesystem paths checked before the PATH lookup.
func (l Locator) Candidates() []string {
	out := make([]string, 0, 2)
	if l.DevPath != "" {
		out = append(out, l.DevPath)
	}
	if dir := l.resourceDir(); dir != "" {
		out = append(out, filepath.Join(dir, "bin", l.binary()))
	}
	return out
}

// Resolve returns the first existing candidate.
func (l Locator) Resolve() (string, error) {
	for _, p := range l.Candidates() {
		if isFile(p) {
			return p, nil
		}
	}
	lookPath := l.lookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	if p, err := lookPath(l.binary()); err == nil && p != "" {
		return p, nil
	}
	return "", fmt.Errorf("%w: %s is not bundled and not on PATH; download it from %s and place it at %s",
		ErrBinaryNotFound, l.binary(), ReleasesURL, l.DevPath)
}

func (l Locator) binary() string {
	if l.Binary == "" {
		return DefaultBinary
	}
	return l.Binary
}

func (l Locator) resourceDir() string {
	if l.ResourceDir != "" {
		return l.ResourceDir
	}
	exe := l.executable
	if exe == nil {
		exe = os.Executable
	}
	p, err := exe()
	if err != nil {
		return ""
	}
	return filepath.Dir(p)
}

func isFile(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}

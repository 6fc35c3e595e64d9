package fpsmon

import (
	"io"
	"strings"

	"github.com/loykin/fpsmon/internal/monitor"
)

type staticLocator struct{}

func (staticLocator) Resolve() (string, error) { return "/fake/PresentMon.exe", nil }

type emptyHandle struct{ io.Reader }

func (h emptyHandle) Stdout() io.Reader { return h.Reader }
func (emptyHandle) Kill()               {}
func (emptyHandle) Wait() error         { return nil }

// launcherFunc returns a launcher that runs before and then yields an empty stream.
func launcherFunc(before func()) monitor.Launcher {
	return monitor.LauncherFunc(func(string, string) (monitor.Handle, error) {
		before()
		return emptyHandle{strings.NewReader("")}, nil
	})
}

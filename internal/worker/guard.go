package worker

import (
	stderrors "errors"

	"github.com/Tubbz-alt/ripples/ports"
)

// guard owns the device resources of one worker. Resources are released
// in reverse order of acquisition, either when construction fails part
// way or when the worker is closed.
type guard struct {
	releases []func() error
	released bool
}

func (g *guard) hold(b ports.DeviceBuffer) {
	g.releases = append(g.releases, b.Free)
}

func (g *guard) onRelease(release func() error) {
	g.releases = append(g.releases, release)
}

// release frees everything held so far. Calling it again is a no-op.
func (g *guard) release() error {
	if g.released {
		return nil
	}
	g.released = true
	var errs []error
	for i := len(g.releases) - 1; i >= 0; i-- {
		if err := g.releases[i](); err != nil {
			errs = append(errs, err)
		}
	}
	g.releases = nil
	return stderrors.Join(errs...)
}

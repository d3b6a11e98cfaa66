package render

import (
	"github.com/relabs-tech/nmeatop/internal/dashboard"
	"github.com/relabs-tech/nmeatop/internal/status"
)

// Multi draws every snapshot on each renderer in order and stops at the
// first failure.
type Multi []dashboard.Renderer

func (m Multi) Render(snap status.Snapshot) error {
	for _, r := range m {
		if err := r.Render(snap); err != nil {
			return err
		}
	}
	return nil
}

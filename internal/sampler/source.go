//go:generate mockgen -source=source.go -destination=mocks/mock_source.go -package=mocks

package sampler

import (
	"context"

	"github.com/mpsm/bsprof/internal/profile"
)

// Source reads one instantaneous system snapshot. Implementations must return
// quickly; a transient failure should be reported as an
// apperrors.SampleUnavailableError so that the tick is skipped.
type Source interface {
	Read(ctx context.Context) (profile.Sample, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) (profile.Sample, error)

// Read calls f.
func (f SourceFunc) Read(ctx context.Context) (profile.Sample, error) { return f(ctx) }

// Package themebundle defines the port that turns a community bundle URL into
// a theme payload.
package themebundle

import (
	"context"

	"github.com/roumanok/junto-tic-frontend-sub000/internal/domain/theme"
)

// Runner fetches and evaluates a bundle. It must honour ctx cancellation and
// return an error instead of waiting forever when the bundle never reports.
type Runner interface {
	Run(ctx context.Context, bundleURL string) (*theme.Theme, error)
}

//go:build wireinject

package app

import (
	"context"

	"verge/internal/config"

	"github.com/google/wire"
)

func buildAppWithWire(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	wire.Build(
		provideSource,
		provideBreakers,
		provideNews,
		provideFundamentals,
		provideAnalytics,
		provideFearGreed,
		provideAssembler,
		provideSessionStore,
		provideLogStore,
		provideHub,
		provideSink,
		provideHunt,
		provideMonitor,
		provideScanner,
		provideHTTP,
		newApp,
	)
	return nil, nil, nil
}

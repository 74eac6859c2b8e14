//go:build wireinject

package app

import (
	"tierbot/internal/config"

	"github.com/google/wire"
)

var providerSet = wire.NewSet(
	provideLocation,
	provideMetrics,
	provideRiskManager,
	providePositionManager,
	provideHierarchy,
	provideExchange,
	provideGate,
	provideTelegram,
	provideOutbox,
	provideJournal,
	provideBacktestStore,
	provideBot,
	provideHTTPServer,
	newApp,
)

func buildAppWithWire(cfg *config.Config, path ConfigPath) (*App, func(), error) {
	wire.Build(providerSet)
	return nil, nil, nil
}

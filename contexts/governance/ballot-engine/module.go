package ballotengine

import (
	"log/slog"

	httpadapter "quorum/contexts/governance/ballot-engine/adapters/http"
	"quorum/contexts/governance/ballot-engine/adapters/memory"
	"quorum/contexts/governance/ballot-engine/application/commands"
	"quorum/contexts/governance/ballot-engine/application/queries"
	"quorum/contexts/governance/ballot-engine/domain/entities"
	"quorum/contexts/governance/ballot-engine/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Gate        ports.AccessGate
	Sessions    ports.SessionStore
	Resolutions ports.ResolutionStore
	Voters      ports.VoterLedger
	Tallies     ports.TallyStore
	Outbox      ports.OutboxWriter
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Logger      *slog.Logger
}

func NewModule(deps Dependencies) Module {
	sessionUseCase := commands.SessionUseCase{
		Gate:     deps.Gate,
		Sessions: deps.Sessions,
		Outbox:   deps.Outbox,
		Clock:    deps.Clock,
		IDGen:    deps.IDGen,
		Logger:   deps.Logger,
	}
	registryUseCase := commands.RegistryUseCase{
		Gate:        deps.Gate,
		Sessions:    deps.Sessions,
		Resolutions: deps.Resolutions,
		Voters:      deps.Voters,
		Outbox:      deps.Outbox,
		Clock:       deps.Clock,
		IDGen:       deps.IDGen,
		Logger:      deps.Logger,
	}
	tallyUseCase := commands.TallyUseCase{
		Sessions:    deps.Sessions,
		Resolutions: deps.Resolutions,
		Voters:      deps.Voters,
		Tallies:     deps.Tallies,
		Outbox:      deps.Outbox,
		Clock:       deps.Clock,
		IDGen:       deps.IDGen,
		Logger:      deps.Logger,
	}
	resultsUseCase := queries.ResultsUseCase{
		Sessions:    deps.Sessions,
		Resolutions: deps.Resolutions,
		Voters:      deps.Voters,
		Clock:       deps.Clock,
	}
	return Module{
		Handler: httpadapter.Handler{
			Sessions: sessionUseCase,
			Registry: registryUseCase,
			Tally:    tallyUseCase,
			Results:  resultsUseCase,
			Logger:   deps.Logger,
		},
	}
}

func NewInMemoryModule(operators []entities.Address, logger *slog.Logger) Module {
	store := memory.NewStore(operators)
	module := NewModule(Dependencies{
		Gate:        store,
		Sessions:    store,
		Resolutions: store,
		Voters:      store,
		Tallies:     store,
		Outbox:      store,
		Clock:       store,
		IDGen:       store,
		Logger:      logger,
	})
	module.Store = store
	return module
}

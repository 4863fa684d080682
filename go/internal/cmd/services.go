package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/hackjudge/go/clients/devpost_client"
	"github.com/mcdev12/hackjudge/go/internal/auth"
	"github.com/mcdev12/hackjudge/go/internal/judging"
	"github.com/mcdev12/hackjudge/go/internal/orchestrator"
	"github.com/mcdev12/hackjudge/go/internal/outbox"
	"github.com/mcdev12/hackjudge/go/internal/presentation"
	"github.com/mcdev12/hackjudge/go/internal/store"
	"github.com/mcdev12/hackjudge/go/internal/store/memstore"
	"github.com/mcdev12/hackjudge/go/internal/users"
)

type Services struct {
	Presentation *presentation.Service
	Judging      *judging.Service
	Users        *users.Service

	PresentationApp *presentation.App
	Scheduler       *orchestrator.Scheduler
	UserStore       auth.UserStore
	Health          func(ctx context.Context) error

	// Relay is set only for the memory store with OUTBOX_INPROCESS.
	Relay     *outbox.Relay
	publisher *outbox.JetStreamPublisher
}

// stores holds the two domain repositories over one backing store.
type stores struct {
	presentation presentation.Store
	judging      judging.Store
	users        auth.UserStore
	ping         func(ctx context.Context) error
	mem          *memstore.Store
}

func setupStores(cfg *Config, database *sql.DB) (*stores, error) {
	if cfg.Store == storePostgres {
		pg := store.NewPostgres(database)
		return &stores{
			presentation: presentation.NewRepository(pg.WithinTx),
			judging:      judging.NewRepository(pg.WithinTx),
			users:        pg,
			ping:         pg.Ping,
		}, nil
	}

	mem := memstore.New()
	if cfg.SeedRoster != "" {
		roster, err := users.LoadRoster(cfg.SeedRoster)
		if err != nil {
			return nil, err
		}
		for _, u := range roster.Accounts(time.Now().UTC()) {
			mem.AddUser(u)
		}
		log.Info().Int("users", len(roster.Users)).Str("roster", cfg.SeedRoster).Msg("seeded memory store")
	}
	return &stores{
		presentation: presentation.NewRepository(mem.WithinTx),
		judging:      judging.NewRepository(mem.WithinTx),
		users:        mem,
		ping:         mem.Ping,
		mem:          mem,
	}, nil
}

func setupServices(ctx context.Context, cfg *Config, database *sql.DB) (*Services, error) {
	// Wire up dependency injection chain
	// Store → Repository → App → Service
	st, err := setupStores(cfg, database)
	if err != nil {
		return nil, err
	}

	clock := clockwork.NewRealClock()
	scheduler := orchestrator.NewScheduler(clock, cfg.Scheduler)

	// Presentation
	presentationApp := presentation.NewApp(st.presentation, scheduler, clock, cfg.Presentation, presentation.NewPrometheusMetrics())
	presentationService := presentation.NewService(presentationApp)

	// Judging
	importer, err := devpost_client.NewDevpostClient(cfg.Devpost)
	if err != nil {
		return nil, fmt.Errorf("failed to create project importer: %w", err)
	}
	judgingApp := judging.NewApp(st.judging, importer, clock, cfg.Judging, judging.NewPrometheusMetrics())
	judgingService := judging.NewService(judgingApp, cfg.Judging)

	// Users
	usersService := users.NewService(users.NewApp(st.users))

	svcs := &Services{
		Presentation:    presentationService,
		Judging:         judgingService,
		Users:           usersService,
		PresentationApp: presentationApp,
		Scheduler:       scheduler,
		UserStore:       st.users,
		Health:          st.ping,
	}

	if cfg.InProcessRelay {
		publisher, err := outbox.NewJetStreamPublisher(ctx, cfg.JetStream, clock)
		if err != nil {
			return nil, fmt.Errorf("failed to create JetStream publisher: %w", err)
		}
		svcs.publisher = publisher
		svcs.Relay = outbox.NewRelay(st.mem, publisher, nil, clock, cfg.Relay, outbox.NewPrometheusMetrics())
	}

	return svcs, nil
}

func (s *Services) Close() {
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close publisher")
		}
	}
}

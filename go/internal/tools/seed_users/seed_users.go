package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/mcdev12/hackjudge/go/internal/auth"
	"github.com/mcdev12/hackjudge/go/internal/dbconfig"
	"github.com/mcdev12/hackjudge/go/internal/users"
)

type seedConfig struct {
	RosterPath string `env:"SEED_ROSTER" envDefault:"config/roster.yaml"`
	Auth       auth.Config
}

func main() {
	ctx := context.Background()
	_ = godotenv.Load()

	var cfg seedConfig
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "parse config: %v\n", err)
		os.Exit(1)
	}

	// 1) Load roster
	roster, err := users.LoadRoster(cfg.RosterPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load roster: %v\n", err)
		os.Exit(1)
	}

	// 2) Connect to DB
	dbCfg, err := dbconfig.NewConfigFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "database config: %v\n", err)
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, dbCfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect error: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// 3) Upsert users; group assignment is left to FormGroups
	now := time.Now().UTC()
	issuer := cfg.Auth.NewIssuer()
	total, inserted, updated, errs := len(roster.Users), 0, 0, 0
	for _, e := range roster.Users {
		u := e.User(now)
		var wasInsert bool
		err := pool.QueryRow(ctx, `
            INSERT INTO users (id, name, email, role)
            VALUES ($1, $2, $3, $4::user_role)
            ON CONFLICT (email) DO UPDATE
              SET name = EXCLUDED.name, role = EXCLUDED.role
            RETURNING (xmax = 0)
        `, u.ID, u.Name, u.Email, string(u.Role)).Scan(&wasInsert)
		if err != nil {
			fmt.Fprintf(os.Stderr, "upsert %s: %v\n", u.Email, err)
			errs++
			continue
		}
		if wasInsert {
			inserted++
		} else {
			updated++
		}

		// 4) Mint a sign-in token
		token, err := issuer.Issue(u, now)
		if err != nil {
			fmt.Fprintf(os.Stderr, "issue token for %s: %v\n", u.Email, err)
			errs++
			continue
		}
		fmt.Printf("%-9s %-32s %s\n", u.Role, u.Email, token)
	}
	fmt.Printf(
		"Users seed: total=%d inserted=%d updated=%d errors=%d\n",
		total, inserted, updated, errs,
	)
	if errs > 0 {
		os.Exit(1)
	}
}

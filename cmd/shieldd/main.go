// Command shieldd is the pool daemon: it owns the durable store, the
// Merkle accumulator, and the commitment event publisher, and holds one
// engine.Pool resident for the process lifetime. No request transport
// is wired, so it does not serve transact/initialize/update_config
// calls.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/veilpool/engine/internal/balance"
	"github.com/veilpool/engine/internal/engine"
	"github.com/veilpool/engine/internal/events"
	"github.com/veilpool/engine/internal/merkle"
	"github.com/veilpool/engine/internal/nullifier"
	"github.com/veilpool/engine/internal/poseidon"
	"github.com/veilpool/engine/internal/storage"
)

const (
	version = "0.1.0"
	banner  = `
  ____ _     _      _     _
 / ___| |__ (_) ___| | __| |
 \___ \ '_ \| |/ _ \ |/ _` + "`" + ` |
  ___) | | | | |  __/ | (_| |
 |____/|_| |_|_|\___|_|\__,_|

  Shield Daemon v%s
`
)

// Config holds the daemon's runtime configuration.
type Config struct {
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string

	UseMemoryStore bool

	P2PListen string
}

func main() {
	cfg := parseFlags()
	fmt.Printf(banner, version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		cancel()
	}()

	if err := run(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.DBHost, "db-host", "localhost", "PostgreSQL host")
	flag.IntVar(&cfg.DBPort, "db-port", 5432, "PostgreSQL port")
	flag.StringVar(&cfg.DBUser, "db-user", "veilpool", "PostgreSQL user")
	flag.StringVar(&cfg.DBPassword, "db-password", "", "PostgreSQL password")
	flag.StringVar(&cfg.DBName, "db-name", "veilpool", "PostgreSQL database name")
	flag.BoolVar(&cfg.UseMemoryStore, "memory", false, "Use an in-memory store instead of PostgreSQL")
	flag.StringVar(&cfg.P2PListen, "p2p-listen", "/ip4/0.0.0.0/tcp/0", "libp2p listen address for the commitment event topic")

	flag.Parse()
	return cfg
}

func run(ctx context.Context, cfg *Config) error {
	fmt.Println("Initializing shield pool...")

	var store *poolStore
	if cfg.UseMemoryStore {
		store = &poolStore{memory: storage.NewMemoryStore()}
		fmt.Println("Using in-memory store.")
	} else {
		fmt.Println("Connecting to database...")
		dbCfg := &storage.Config{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			Database: cfg.DBName,
			SSLMode:  "disable",
			MaxConns: 20,
		}
		pg, err := storage.NewPostgresStore(ctx, dbCfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pg.Close()
		store = &poolStore{postgres: pg}
		fmt.Println("Database connected.")
	}

	oracle := poseidon.New()
	tree := merkle.New(store.merkleStore(), oracle)

	pub, err := events.NewPublisher(ctx, &events.Config{ListenAddrs: []string{cfg.P2PListen}})
	if err != nil {
		return fmt.Errorf("failed to start event publisher: %w", err)
	}
	defer pub.Close()
	fmt.Println("Commitment event topic joined:", events.CommitmentTopic)

	bal := balance.New(store.transferer(), store.tokenTransferer())

	// pool is held resident for the process lifetime; no network
	// transport is wired up yet, so nothing calls Process here.
	// shield-cli drives its own in-memory pool instead of dialing this
	// one.
	pool := engine.New(store.configStore(), store.nullifierStore(), tree, bal, pub, store.snapshotter())
	_ = pool

	fmt.Println("Shield pool ready. Press Ctrl+C to stop.")
	<-ctx.Done()
	fmt.Println("Pool stopped.")
	return nil
}

// poolStore wraps whichever backing store was selected and exposes the
// narrower interfaces each subsystem needs, since MemoryStore and
// PostgresStore both implement the full set but we only ever hold one
// at a time.
type poolStore struct {
	memory   *storage.MemoryStore
	postgres *storage.PostgresStore
}

func (s *poolStore) merkleStore() merkle.Store {
	if s.memory != nil {
		return s.memory
	}
	return s.postgres
}

func (s *poolStore) nullifierStore() nullifier.Store {
	if s.memory != nil {
		return s.memory
	}
	return s.postgres
}

func (s *poolStore) configStore() engine.ConfigStore {
	if s.memory != nil {
		return s.memory
	}
	return s.postgres
}

func (s *poolStore) transferer() balance.Transferer {
	if s.memory != nil {
		return s.memory
	}
	return s.postgres
}

func (s *poolStore) tokenTransferer() balance.TokenTransferer {
	if s.memory != nil {
		return s.memory
	}
	return s.postgres
}

func (s *poolStore) snapshotter() engine.Snapshotter {
	if s.memory != nil {
		return s.memory
	}
	return s.postgres
}

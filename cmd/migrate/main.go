// Command migrate applies the SQL migrations in migrations/ against the
// configured database. Thin wrapper around golang-migrate so deploys and
// local setups run the same code path.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/lumenlms/progression-backend/internal/config"
)

func main() {
	var migrationDir string
	flag.StringVar(&migrationDir, "path", "migrations", "Path to migration files")
	flag.Parse()

	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		fatal("DATABASE_URL is not set")
	}

	m, err := migrate.New("file://"+migrationDir, cfg.DatabaseURL)
	if err != nil {
		fatal("initialize migrations: %v", err)
	}

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	switch cmd := args[0]; cmd {
	case "up":
		run(m.Up, "migrated up")
	case "down":
		run(m.Down, "migrated down")
	case "steps":
		n := intArg(args, "steps requires a count (negative rolls back)")
		run(func() error { return m.Steps(n) }, fmt.Sprintf("applied %d step(s)", n))
	case "force":
		v := intArg(args, "force requires a version")
		if err := m.Force(v); err != nil {
			fatal("force: %v", err)
		}
		fmt.Printf("forced version to %d\n", v)
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			fatal("version: %v", err)
		}
		fmt.Printf("version=%d dirty=%t\n", version, dirty)
	default:
		fmt.Printf("unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}
}

// run executes a migration op, treating ErrNoChange as success.
func run(op func() error, okMsg string) {
	if err := op(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		fatal("migration: %v", err)
	}
	fmt.Println(okMsg)
}

func intArg(args []string, missingMsg string) int {
	if len(args) < 2 {
		fatal(missingMsg)
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		fatal("not a number: %q", args[1])
	}
	return n
}

func fatal(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}

func usage() {
	fmt.Println("Usage: migrate [-path dir] <up|down|steps <n>|version|force <v>>")
	flag.PrintDefaults()
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/kewsys/registry/internal/auth"
	"github.com/kewsys/registry/internal/config"
	"github.com/kewsys/registry/internal/domain/user"
	ierr "github.com/kewsys/registry/internal/errors"
	"github.com/kewsys/registry/internal/logger"
	"github.com/kewsys/registry/internal/postgres"
	"github.com/kewsys/registry/internal/repository"
	postgresRepo "github.com/kewsys/registry/internal/repository/postgres"
	"github.com/kewsys/registry/internal/schema"
	"github.com/kewsys/registry/internal/sentry"
	"github.com/kewsys/registry/internal/types"
)

func main() {
	// Parse command line flags
	dryRun := flag.Bool("dry-run", false, "Print migration SQL without executing it")
	seedAdmin := flag.Bool("seed-admin", false, "Create an initial admin account when it does not exist")
	adminUsername := flag.String("admin-username", "admin", "Username of the seeded admin")
	adminEmail := flag.String("admin-email", "admin@localhost", "Email of the seeded admin")
	flag.Parse()

	stmts := postgresRepo.SchemaDDL(schema.NewDefaultRegistry())

	if *dryRun {
		for _, stmt := range stmts {
			fmt.Printf("%s;\n\n", stmt)
		}
		return
	}

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := logger.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	logger.Infow("Connecting to database", "host", cfg.Postgres.Host)
	db, err := postgres.NewDB(cfg, logger, sentry.NewSentryService(cfg, logger))
	if err != nil {
		logger.Fatalw("Failed to connect to postgres", "error", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Info("Running database migrations...")
	err = db.WithTx(ctx, func(ctx context.Context) error {
		q := db.GetQuerier(ctx)
		for _, stmt := range stmts {
			if _, err := q.ExecContext(ctx, stmt); err != nil {
				return ierr.WithError(err).
					WithHintf("failed to execute %.60s", stmt).
					Mark(ierr.ErrDatabase)
			}
		}
		return nil
	})
	if err != nil {
		logger.Fatalw("Failed to create schema resources", "error", err)
	}
	logger.Infow("Migration completed successfully", "statements", len(stmts))

	if *seedAdmin {
		password := os.Getenv("ADMIN_PASSWORD")
		if password == "" {
			logger.Fatal("ADMIN_PASSWORD must be set to seed the admin account")
		}
		repo := repository.NewUserRepository(db, logger)
		if err := seed(ctx, repo, *adminUsername, *adminEmail, password); err != nil {
			logger.Fatalw("Failed to seed admin", "error", err)
		}
	}

	fmt.Println("Migration process completed")
}

// seed creates the admin account, an existing username is left untouched
func seed(ctx context.Context, repo user.Repository, username, email, password string) error {
	_, err := repo.GetByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !ierr.IsNotFound(err) {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	return repo.Create(ctx, &user.User{
		ID:        types.GenerateUUID(),
		Username:  username,
		Email:     email,
		Password:  hash,
		FullName:  "Administrator",
		Role:      types.RoleAdmin,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

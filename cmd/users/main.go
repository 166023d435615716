package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/angelmondragon/countsheet-backend/internal/users"
	"github.com/angelmondragon/countsheet-backend/pkg/config"
	"github.com/angelmondragon/countsheet-backend/pkg/db"
	"github.com/angelmondragon/countsheet-backend/pkg/logger"
	"github.com/angelmondragon/countsheet-backend/pkg/migrate"
	"github.com/angelmondragon/countsheet-backend/pkg/security"
	"github.com/joho/godotenv"
)

const tempPasswordLength = 16

// Creates a user from the command line. Used to seed the first admin before
// anyone can log in to the admin API.
func main() {
	logg := logger.New(logger.Options{ServiceName: "users"})

	_ = godotenv.Load()

	username := flag.String("username", "", "username to create")
	role := flag.String("role", "admin", "role: admin|user")
	password := flag.String("password", "", "password; a temporary one is generated when empty")
	flag.Parse()

	if *username == "" {
		fmt.Fprintln(os.Stderr, "missing -username")
		os.Exit(1)
	}

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "users",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{"env": cfg.App.Env, "username": *username})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	requireResource(ctx, logg, "migrations", migrate.MaybeRun(ctx, cfg, logg, dbClient))

	svc, err := users.NewService(users.NewRepository(dbClient.DB()), cfg.Password)
	requireResource(ctx, logg, "users service", err)

	generated := false
	if *password == "" {
		*password, err = security.GenerateTempPassword(tempPasswordLength)
		requireResource(ctx, logg, "password generator", err)
		generated = true
	}

	user, err := svc.Create(ctx, users.CreateUserRequest{
		Username: *username,
		Password: *password,
		Role:     *role,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create user: %v\n", err)
		os.Exit(1)
	}

	logg.Info(logg.WithField(ctx, "role", string(user.Role)), "user created")
	if generated {
		fmt.Printf("created %s (%s) with temporary password: %s\n", user.Username, user.Role, *password)
		return
	}
	fmt.Printf("created %s (%s)\n", user.Username, user.Role)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}

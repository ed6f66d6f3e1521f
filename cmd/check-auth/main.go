package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/urfave/cli"

	"workspace-provision/internal/config"
	"workspace-provision/internal/credentials"
	"workspace-provision/internal/devutil"
	"workspace-provision/internal/httpx"
	"workspace-provision/internal/logger"
	"workspace-provision/internal/providers/googleworkspace"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		l := zerolog.New(os.Stderr).With().Timestamp().Logger()
		l.Fatal().Err(err).Msg("check-auth")
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "check-auth"
	app.Usage = "Verify TOKEN_JSON against the Directory API by listing a few users"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config",
			Usage:  "Optional YAML config file",
			EnvVar: "PROVISION_CONFIG",
		},
		cli.IntFlag{
			Name:  "limit",
			Usage: "Number of users to list",
			Value: 10,
		},
	}
	app.Action = run
	return app
}

func run(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RunTimeout())
	defer cancel()

	sess, err := credentials.Load(ctx, cfg.TokenJSON, googleworkspace.Scopes, httpx.NewClient(cfg.HTTPTimeout(), log))
	if err != nil {
		return fmt.Errorf("auth error: %w", err)
	}
	tok, err := sess.Token()
	if err != nil {
		return fmt.Errorf("auth error: %w", err)
	}
	fmt.Println("OK: got token (len):", len(tok.AccessToken))

	gw, err := googleworkspace.New(ctx, googleworkspace.Options{
		HTTPClient: sess.Client,
		Endpoint:   cfg.DirectoryEndpoint,
		Logger:     log,
	})
	if err != nil {
		return err
	}

	users, err := gw.ListUsers(ctx, c.Int("limit"))
	if err != nil {
		return fmt.Errorf("list users error: %w", err)
	}

	fmt.Printf("OK: fetched %d users\n", len(users))
	for i, u := range users {
		fmt.Printf("%d) %v\n", i+1, devutil.Pick(u, "primaryEmail", "orgUnitPath", "suspended", "creationTime"))
	}
	return nil
}

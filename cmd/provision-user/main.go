package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli"

	"workspace-provision/internal/apperr"
	"workspace-provision/internal/config"
	"workspace-provision/internal/credentials"
	"workspace-provision/internal/httpx"
	"workspace-provision/internal/logger"
	"workspace-provision/internal/metrics"
	"workspace-provision/internal/notify"
	"workspace-provision/internal/providers"
	"workspace-provision/internal/providers/googleworkspace"
	"workspace-provision/internal/provision"
	"workspace-provision/internal/record"
	"workspace-provision/internal/sftpclient"
)

func main() {
	app := cli.NewApp()
	app.Name = "provision-user"
	app.Usage = "Create one Google Workspace user from a key: value text file"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config",
			Usage:  "Optional YAML config file",
			EnvVar: "PROVISION_CONFIG",
		},
		cli.StringFlag{
			Name:  "record",
			Usage: "Path or sftp:// URL of the user record (overrides TXT_FILE)",
		},
		cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Parse and validate, log the request and the notification, change nothing",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		l := zerolog.New(os.Stderr).With().Timestamp().Logger()
		l.Fatal().Err(err).Msg("provision-user")
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cli.NewExitError(apperr.Configuration("load configuration", err).Error(), 1)
	}
	if p := c.String("record"); p != "" {
		cfg.RecordPath = p
	}
	if err := cfg.Validate(); err != nil {
		return cli.NewExitError(apperr.Configuration("invalid configuration", err).Error(), 1)
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	dryRun := c.Bool("dry-run")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RunTimeout())
	defer cancel()

	m := metrics.New()
	runner := &provision.Runner{
		Source: record.Source{
			Location: cfg.RecordPath,
			SFTP: sftpclient.Config{
				Host:                  cfg.SFTPHost,
				Port:                  cfg.SFTPPort,
				User:                  cfg.SFTPUser,
				Pass:                  cfg.SFTPPass,
				KnownHostsFile:        cfg.SFTPKnownHosts,
				InsecureIgnoreHostKey: cfg.SFTPInsecureIgnoreHostKey,
			},
		},
		Connect:  connector(cfg, dryRun, log),
		Notifier: notify.NewSender(cfg, dryRun, log),
		Logger:   log,
		Metrics:  m,
	}

	res := runner.Run(ctx)

	if err := pushMetrics(m, cfg.PushgatewayURL, cfg.HTTPTimeout()); err != nil {
		log.Warn().Err(err).Msg("could not push metrics")
	}
	if res.State != provision.StateDone {
		return cli.NewExitError("", 1)
	}
	return nil
}

// pushMetrics bounds the Pushgateway call by timeout.
func pushMetrics(m *metrics.Recorder, url string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return m.Push(ctx, url)
}

func connector(cfg config.Config, dryRun bool, log zerolog.Logger) provision.Connector {
	if dryRun {
		return func(ctx context.Context) (providers.Directory, error) {
			log.Info().Msg("[DRY-RUN] skipping authentication")
			return googleworkspace.DryRun{DefaultOrgUnit: cfg.DefaultOrgUnit, Logger: log}, nil
		}
	}
	return func(ctx context.Context) (providers.Directory, error) {
		sess, err := credentials.Load(ctx, cfg.TokenJSON, googleworkspace.Scopes, httpx.NewClient(cfg.HTTPTimeout(), log))
		if err != nil {
			return nil, err
		}
		return googleworkspace.New(ctx, googleworkspace.Options{
			HTTPClient:     sess.Client,
			Endpoint:       cfg.DirectoryEndpoint,
			DefaultOrgUnit: cfg.DefaultOrgUnit,
			PasswordLength: cfg.PasswordLength,
			Logger:         log,
		})
	}
}

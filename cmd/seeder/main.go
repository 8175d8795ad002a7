package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragsearch/internal/config"
	dbRedis "github.com/kailas-cloud/ragsearch/internal/db/redis"
	logpkg "github.com/kailas-cloud/ragsearch/internal/logger"
	"github.com/kailas-cloud/ragsearch/internal/metrics"
	"github.com/kailas-cloud/ragsearch/internal/provider"
	corpusrepo "github.com/kailas-cloud/ragsearch/internal/repository/corpus"
	"github.com/kailas-cloud/ragsearch/internal/repository/corpusfile"
	"github.com/kailas-cloud/ragsearch/internal/usecase/seed"
	"github.com/kailas-cloud/ragsearch/internal/version"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "seeder",
		Usage:   "Embed a corpus file and store it in Redis for ragsearch",
		Version: version.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env",
				Aliases: []string{"e"},
				Usage:   "Config environment (reads config/<env>.yaml)",
				EnvVars: []string{"ENV"},
				Value:   "local",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "seed",
				Usage:  "Embed entries from a YAML/JSON corpus file and save them",
				Action: seedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "Path to the corpus file",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Texts per embedding call",
						Value: seed.DefaultBatchSize,
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent embedding batches",
						Value: seed.DefaultWorkers,
					},
				},
			},
			{
				Name:   "count",
				Usage:  "Print the number of stored corpus entries",
				Action: countCommand,
			},
			{
				Name:   "clear",
				Usage:  "Delete every stored corpus entry",
				Action: clearCommand,
			},
		},
	}
}

type deps struct {
	cfg    config.Config
	logger *zap.Logger
	store  *dbRedis.Store
	repo   *corpusrepo.Repo
}

func (d *deps) close() {
	d.store.Close()
	_ = d.logger.Sync()
}

func setup(c *cli.Context) (*deps, error) {
	env := c.String("env")
	cfg, err := config.Load(env)
	if err != nil {
		return nil, err
	}
	if !cfg.Database.Enabled() {
		return nil, fmt.Errorf("database.addrs must be configured for env %q", env)
	}

	level := c.String("log-level")
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logpkg.NewLogger(env, level)
	if err != nil {
		return nil, err
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("create database store: %w", err)
	}
	timeout := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
	if err := store.WaitForReady(contextOf(c), timeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}

	return &deps{
		cfg:    cfg,
		logger: logger,
		store:  store,
		repo:   corpusrepo.New(store, cfg.Database.KeyPrefix, logger),
	}, nil
}

func seedCommand(c *cli.Context) error {
	d, err := setup(c)
	if err != nil {
		return err
	}
	defer d.close()

	doc, err := corpusfile.ReadFile(c.String("file"))
	if err != nil {
		return err
	}

	metrics.RegisterEmbeddingMetrics()
	base, err := provider.New(d.cfg.Embedding, d.logger)
	if err != nil {
		return err
	}
	emb, err := provider.Decorate(base, d.cfg.Embedding, d.store, d.cfg.Database.KeyPrefix, d.logger)
	if err != nil {
		return err
	}

	svc := seed.New(emb, d.repo, seed.Config{
		BatchSize: c.Int("batch-size"),
		Workers:   c.Int("workers"),
	}, d.logger)

	rep, err := svc.Run(contextOf(c), doc.Entries)
	fmt.Fprintf(c.App.Writer, "records=%d embedded=%d saved=%d skipped=%d failed=%d\n",
		rep.Records, rep.Embedded, rep.Saved, rep.Skipped, rep.Failed)
	return err
}

func countCommand(c *cli.Context) error {
	d, err := setup(c)
	if err != nil {
		return err
	}
	defer d.close()

	n, err := d.repo.Count(contextOf(c))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, n)
	return nil
}

func clearCommand(c *cli.Context) error {
	d, err := setup(c)
	if err != nil {
		return err
	}
	defer d.close()

	n, err := d.repo.Clear(contextOf(c))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "deleted %d entries\n", n)
	return nil
}

func contextOf(c *cli.Context) context.Context {
	if c.Context != nil {
		return c.Context
	}
	return context.Background()
}

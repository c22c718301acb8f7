package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"airlock/internal/airlock"
	"airlock/internal/api"
	"airlock/internal/blob"
	"airlock/internal/config"
	"airlock/internal/ledger"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

type stores struct {
	cfg    *config.Config
	store  *airlock.Store
	ledger *ledger.Store
	blobs  *blob.Store
}

func (s *stores) queueService() *api.QueueService {
	return api.NewQueueService(s.cfg, s.store, s.ledger, s.blobs)
}

// withStores opens the local database for the duration of fn.
func (c *commandContext) withStores(fn func(*stores) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := airlock.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	blobs, err := blob.NewStore(cfg)
	if err != nil {
		return err
	}

	return fn(&stores{
		cfg:    cfg,
		store:  store,
		ledger: ledger.NewStore(store.DB()),
		blobs:  blobs,
	})
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

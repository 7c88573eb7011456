package container

import (
	"fmt"

	"cprfeed/adapters/docstore"
	"cprfeed/adapters/excel"
	"cprfeed/internal"
	"cprfeed/internal/archive"
	"cprfeed/internal/cache"
	"cprfeed/internal/config"
	"cprfeed/internal/report"
	"cprfeed/ports"
)

// Container holds the application dependencies
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Adapters
	DocumentStore ports.DocumentStore
	Reader        ports.SpreadsheetReader

	// Services
	Cache   *cache.Cache
	Archive *archive.Client
	Reports *report.Service
}

// New wires every component from cfg
func New(cfg *config.Config, logger *internal.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = internal.NewLogger(internal.ParseLogLevel(cfg.Logging.Level))
	}

	c := &Container{
		Config: cfg,
		Logger: logger,
	}

	c.initAdapters()
	if err := c.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return c, nil
}

func (c *Container) initAdapters() {
	storeConfig := docstore.DefaultConfig()
	storeConfig.Timeout = c.Config.Archive.HTTPTimeout
	storeConfig.MaxBodyBytes = c.Config.Archive.MaxDownloadBytes

	c.DocumentStore = docstore.NewClient(storeConfig, c.Logger)
	c.Reader = excel.NewReader(c.Logger)
}

func (c *Container) initServices() error {
	sharedCache, err := cache.New(cache.Options{
		MaxEntries: c.Config.Cache.MaxEntries,
		TTL:        c.Config.Cache.TTL,
	})
	if err != nil {
		return err
	}

	c.Cache = sharedCache
	c.Archive = archive.NewClient(c.DocumentStore, c.Config.Archive.IndexURL, c.Logger)
	c.Reports = report.NewService(
		c.Archive,
		archive.DownloadURL(c.Config.Archive.DownloadURLTemplate),
		c.DocumentStore,
		c.Reader,
		c.Cache,
		c.Logger,
	)
	return nil
}

// Shutdown drops cached workbooks and results
func (c *Container) Shutdown() {
	if c.Cache != nil {
		c.Cache.Purge()
	}
}

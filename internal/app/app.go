package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"pricewatch/internal/alerting"
	"pricewatch/internal/browser"
	"pricewatch/internal/config"
	"pricewatch/internal/extractor"
	"pricewatch/internal/fetcher"
	"pricewatch/internal/ingest"
	"pricewatch/internal/source"
	"pricewatch/internal/storage"
)

var errNoDatabase = errors.New("database.dsn not configured")

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newRegistry() (*source.Registry, error) {
	sources := make([]source.Source, 0, len(a.Config.Sources))
	for _, src := range a.Config.Sources {
		encoding := source.EncodePercent
		if src.SpaceEncoding == string(source.EncodePlus) {
			encoding = source.EncodePlus
		}
		sources = append(sources, source.Source{
			Name:          src.Name,
			URLTemplate:   src.URLTemplate,
			SpaceEncoding: encoding,
		})
	}
	return source.NewRegistry(sources)
}

func (a *App) newExtractor() (extractor.Extractor, error) {
	return extractor.NewGemini(extractor.GeminiOptions{
		APIKey:       a.Config.Extractor.APIKey,
		BaseURL:      a.Config.Extractor.BaseURL,
		Model:        a.Config.Extractor.Model,
		Timeout:      a.Config.Extractor.Timeout,
		MaxPageChars: a.Config.Extractor.MaxPageChars,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) commodities() []ingest.Commodity {
	out := make([]ingest.Commodity, 0, len(a.Config.Commodities))
	for _, c := range a.Config.Commodities {
		out = append(out, ingest.Commodity{Name: c.Name, Category: c.Category})
	}
	return out
}

// newRunner builds the full scrape pipeline: browser pool, per-source
// adapters, extractor, and runner. The returned closer tears down the
// browsers and must run after all scraping has finished.
func (a *App) newRunner(store ingest.ObservationAppender, sources []source.Source) (*ingest.Runner, []*fetcher.Adapter, func(), error) {
	ex, err := a.newExtractor()
	if err != nil {
		return nil, nil, nil, err
	}

	pool, err := browser.NewPool(browser.Options{
		Headless:          a.Config.Browser.Headless,
		NoSandbox:         a.Config.Browser.NoSandbox,
		UserAgent:         a.Config.Browser.UserAgent,
		PoolSize:          a.Config.Browser.PoolSize,
		NavigationTimeout: a.Config.Browser.NavigationTimeout,
	}, a.Logger)
	if err != nil {
		return nil, nil, nil, err
	}

	adapters := fetcher.NewAdapters(sources, fetcher.Options{
		Settle: a.Config.Scraper.SettleDelay,
	}, a.Logger)

	sessions := ingest.SessionPoolFunc(func(ctx context.Context) (fetcher.PageSession, func(), error) {
		return pool.Acquire(ctx)
	})

	runner := ingest.NewRunner(ingest.Options{
		Commodities:      a.commodities(),
		InterSourceDelay: a.Config.Scraper.InterSourceDelay,
		InterItemDelay:   a.Config.Scraper.InterItemDelay,
		MaxMatches:       a.Config.Scraper.MaxMatches,
		DefaultCategory:  a.Config.Scraper.DefaultCategory,
	}, sessions, adapters, ex, store, a.Logger)

	return runner, adapters, pool.Close, nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// requireStore opens the store and fails when no database is configured.
func (a *App) requireStore(ctx context.Context) (*storage.Store, func(), error) {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if store == nil {
		return nil, nil, errNoDatabase
	}
	return store, closeStore, nil
}

// ExportOptions hold parameters for exporting price history.
type ExportOptions struct {
	Commodity string
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// SearchOptions configure one live search.
type SearchOptions struct {
	Term    string
	Sources []string
}

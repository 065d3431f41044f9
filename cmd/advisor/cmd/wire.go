package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"fuzzy-advisor/config"
	"fuzzy-advisor/internal/analysis"
	"fuzzy-advisor/internal/marketdata"
	"fuzzy-advisor/internal/marketdata/yahoo"
	"fuzzy-advisor/internal/metrics"
	"fuzzy-advisor/internal/model"
	"fuzzy-advisor/internal/notification"
	"fuzzy-advisor/internal/store/postgres"
	redisstore "fuzzy-advisor/internal/store/redis"
	"fuzzy-advisor/internal/store/sqlite"
)

// components are the data-path pieces shared by analyze and serve.
type components struct {
	source model.PriceSource
	store  model.BarStore
	db     *sql.DB
	cache  *redisstore.Cache
}

func (c *components) Close() error {
	var errs []error
	if c.cache != nil {
		errs = append(errs, c.cache.Close())
	}
	if c.store != nil {
		errs = append(errs, c.store.Close())
	}
	return errors.Join(errs...)
}

func buildAnalyzer(c *config.Config) (*analysis.Analyzer, error) {
	ind, err := c.Indicators()
	if err != nil {
		return nil, err
	}
	def, err := c.FuzzyDefinition()
	if err != nil {
		return nil, err
	}
	engine, err := def.Build()
	if err != nil {
		return nil, err
	}
	return analysis.New(analysis.Options{
		Indicators: ind,
		Engine:     engine,
		Thresholds: c.Thresholds(),
	})
}

// openStore returns nil for PRICE_STORE=none.
func openStore(ctx context.Context, c *config.Config) (model.BarStore, *sql.DB, error) {
	switch c.PriceStore {
	case config.StoreSQLite:
		if dir := filepath.Dir(c.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("sqlite dir: %w", err)
			}
		}
		s, err := sqlite.New(sqlite.Config{DBPath: c.SQLitePath})
		if err != nil {
			return nil, nil, err
		}
		return s, s.DB(), nil
	case config.StorePostgres:
		s, err := postgres.Open(ctx, c.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s.DB(), nil
	default:
		return nil, nil, nil
	}
}

// buildComponents wires yahoo behind the configured store and cache. Store
// and cache failures at startup are logged and the layer is skipped.
func buildComponents(ctx context.Context, c *config.Config, m *metrics.Metrics, health *metrics.HealthStatus) *components {
	out := &components{}

	store, db, err := openStore(ctx, c)
	if err != nil {
		log.Warn("price store unavailable, continuing without it", "store", c.PriceStore, "error", err)
	} else if store != nil {
		out.store, out.db = store, db
		if health != nil {
			health.EnableStore()
			health.SetStoreOK(true)
		}
		log.Info("price store ready", "store", c.PriceStore)
	}

	if c.RedisAddr != "" {
		if health != nil {
			health.EnableRedis()
		}
		cache, err := redisstore.NewCache(redisstore.CacheConfig{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})
		if err != nil {
			log.Warn("redis unavailable, continuing without cache", "addr", c.RedisAddr, "error", err)
			if health != nil {
				health.SetRedisConnected(false)
			}
		} else {
			out.cache = cache
			if health != nil {
				health.SetRedisConnected(true)
			}
			log.Info("redis cache ready", "addr", c.RedisAddr)
		}
	}

	remote := yahoo.New(yahoo.Config{
		BaseURL:    c.ProviderURL,
		Timeout:    c.ProviderTimeout,
		MaxRetries: c.ProviderRetries,
	})
	opts := marketdata.Options{
		CacheTTL:     c.CacheTTL,
		FetchTimeout: c.RequestTimeout,
		Metrics:      m,
		Health:       health,
	}
	if out.store != nil {
		opts.Store = out.store
	}
	if out.cache != nil {
		opts.Cache = out.cache
	}
	out.source = marketdata.NewCachedSource(remote, opts)
	return out
}

// buildNotifier always logs, and adds webhook and Telegram when configured.
func buildNotifier(c *config.Config) notification.Notifier {
	ns := notification.Multi{notification.NewLogNotifier()}
	if c.WebhookURL != "" {
		ns = append(ns, notification.NewWebhookNotifier(c.WebhookURL))
	}
	if c.TelegramBotToken != "" {
		ns = append(ns, notification.NewTelegramNotifier(c.TelegramBotToken, c.TelegramChatID))
	}
	if len(ns) == 1 {
		return ns[0]
	}
	return ns
}

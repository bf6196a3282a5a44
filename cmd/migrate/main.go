// Command migrate copies the draft collections from one storage backend to another.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/draftdesk/internal/config"
	"github.com/debemdeboas/draftdesk/internal/logger"
	"github.com/debemdeboas/draftdesk/internal/model"
	"github.com/debemdeboas/draftdesk/internal/storage"
)

func main() {
	fromPath := flag.String("from", "", "Config file of the source storage")
	toPath := flag.String("to", "", "Config file of the destination storage")
	overwrite := flag.Bool("overwrite", false, "Replace collections that already exist at the destination")
	timeout := flag.Duration("timeout", time.Minute, "Overall migration timeout")
	flag.Parse()

	log := logger.New("info")
	storage.SetLogger(logger.Component(log, "storage"))

	if *fromPath == "" || *toPath == "" {
		log.Fatal().Msg("Both --from and --to are required")
	}

	from, err := loadConfig(*fromPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *fromPath).Msg("Invalid source config")
	}
	to, err := loadConfig(*toPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *toPath).Msg("Invalid destination config")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	src, err := storage.Open(ctx, from.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not open source storage")
	}
	defer src.Close()

	dst, err := storage.Open(ctx, to.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not open destination storage")
	}
	defer dst.Close()

	failed := false
	for _, kind := range []model.Kind{model.KindBlog, model.KindProject} {
		key := config.DraftsKey(string(kind))
		if err := copyKey(ctx, src, dst, key, *overwrite); err != nil {
			log.Error().Err(err).Str("key", key).Msg("Could not migrate collection")
			failed = true
			continue
		}
		log.Info().Str("key", key).
			Str("from", from.Storage.Backend).
			Str("to", to.Storage.Backend).
			Msg("Collection migrated")
	}

	if failed {
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	config.SetLogger(zerolog.Nop())
	if err := config.LoadConfig(path); err != nil {
		return nil, err
	}
	return config.AppConfig, nil
}

var errDestinationExists = errors.New("destination already holds this collection, pass --overwrite to replace it")

func copyKey(ctx context.Context, src, dst storage.Durable, key string, overwrite bool) error {
	data, err := src.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}

	if !overwrite {
		if _, err := dst.Get(ctx, key); err == nil {
			return errDestinationExists
		} else if !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("check destination: %w", err)
		}
	}

	if err := dst.Set(ctx, key, data); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

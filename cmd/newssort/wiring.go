package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/IshaanNene/NewsSort/internal/ai"
	"github.com/IshaanNene/NewsSort/internal/augment"
	"github.com/IshaanNene/NewsSort/internal/balance"
	"github.com/IshaanNene/NewsSort/internal/classifier"
	"github.com/IshaanNene/NewsSort/internal/label"
	"github.com/IshaanNene/NewsSort/internal/storage"
	"github.com/IshaanNene/NewsSort/internal/types"
)

// openStore opens the record store at location, or the configured store
// with its mirrors when location is empty.
func (a *app) openStore(location string) (storage.Storage, error) {
	opts := storage.Options{Database: a.cfg.Store.Database, Collection: a.cfg.Store.Collection}
	if location == "" || location == a.cfg.Store.Path {
		return storage.OpenAll(a.cfg.Store.Path, a.cfg.Store.Mirrors, opts, a.logger)
	}
	return storage.Open(location, opts, a.logger)
}

// loadRecords reads every record at location. A missing file is an error.
func (a *app) loadRecords(ctx context.Context, location string) ([]types.Record, error) {
	store, err := a.openStore(location)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	records, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", displayLocation(location, a.cfg.Store.Path), err)
	}
	a.metrics.RecordsLoaded.Add(int64(len(records)))
	return records, nil
}

// loadExisting is loadRecords for stores that may not exist yet.
func (a *app) loadExisting(ctx context.Context, location string) ([]types.Record, error) {
	records, err := a.loadRecords(ctx, location)
	if errors.Is(err, fs.ErrNotExist) {
		a.logger.Info("no existing store, starting fresh", "location", displayLocation(location, a.cfg.Store.Path))
		return nil, nil
	}
	return records, err
}

// saveRecords replaces the contents of the store at location.
func (a *app) saveRecords(ctx context.Context, location string, records []types.Record) error {
	store, err := a.openStore(location)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Save(ctx, records); err != nil {
		return fmt.Errorf("save %s: %w", displayLocation(location, a.cfg.Store.Path), err)
	}
	a.metrics.RecordsStored.Add(int64(len(records)))
	return nil
}

// labeler builds the keyword labeler from the configured category table.
func (a *app) labeler() (*label.Labeler, error) {
	var table label.CategoryTable
	if a.cfg.Labeler.CategoriesFile != "" {
		t, err := label.LoadCategoryTable(a.cfg.Labeler.CategoriesFile)
		if err != nil {
			return nil, err
		}
		table = t
	} else {
		cats := make([]label.Category, len(a.cfg.Labeler.Categories))
		for i, c := range a.cfg.Labeler.Categories {
			cats[i] = label.Category{Name: c.Name, Keywords: c.Keywords}
		}
		table = label.NewCategoryTable(cats)
	}
	return label.New(table, a.logger), nil
}

// llmClient builds the chat client described by the classifier section.
func (a *app) llmClient() (*ai.Client, error) {
	cc := a.cfg.Classifier
	return ai.NewClient(ai.Config{
		Provider: ai.Provider(cc.Provider),
		Endpoint: cc.Endpoint,
		Model:    cc.Model,
		APIKey:   cc.APIKey,
		Timeout:  cc.Timeout,
	}, a.logger)
}

// thesaurus returns the synonym source for augmentation: an LLM behind a
// cache when enabled, else the configured or built-in word list.
func (a *app) thesaurus() (augment.Thesaurus, error) {
	tc := a.cfg.Balance.Thesaurus
	if tc.LLM {
		client, err := a.llmClient()
		if err != nil {
			return nil, fmt.Errorf("thesaurus llm: %w", err)
		}
		return augment.NewCachedThesaurus(augment.NewLLMThesaurus(client, a.logger), tc.CacheTTL), nil
	}
	if tc.Path != "" {
		return augment.LoadThesaurus(tc.Path)
	}
	return augment.DefaultThesaurus(), nil
}

// balancer builds the class balancer for the configured strategy.
func (a *app) balancer(strategy string) (*balance.Balancer, error) {
	bc := a.cfg.Balance
	if strategy == "" {
		strategy = bc.Strategy
	}

	var th augment.Thesaurus
	if balance.Strategy(strategy) == balance.StrategyAugment {
		t, err := a.thesaurus()
		if err != nil {
			return nil, err
		}
		th = t
	}

	return balance.New(balance.Options{
		Strategy:     balance.Strategy(strategy),
		Shuffle:      bc.Shuffle,
		DeletionProb: bc.DeletionProb,
	}, types.NewRand(bc.Seed), th, a.logger)
}

// classifierOptions returns trainer/loader options. The LLM client is
// attached when it can be built; required reports whether failing to build
// it is an error.
func (a *app) classifierOptions(required bool) (classifier.Options, error) {
	opts := classifier.Options{
		FewShot: a.cfg.Classifier.FewShot,
		Seed:    a.cfg.Split.Seed,
	}
	client, err := a.llmClient()
	switch {
	case err == nil:
		opts.LLM = client
	case required:
		return opts, fmt.Errorf("classifier llm: %w", err)
	default:
		a.logger.Debug("llm client unavailable", "error", err)
	}
	return opts, nil
}

// loadModel loads the trained model from the model directory.
func (a *app) loadModel() (classifier.Model, error) {
	opts, err := a.classifierOptions(false)
	if err != nil {
		return nil, err
	}
	model, err := classifier.Load(a.cfg.Classifier.ModelDir, opts)
	if err != nil {
		return nil, fmt.Errorf("load model (run 'newssort train' first): %w", err)
	}
	a.logger.Info("model loaded", "kind", model.Kind(), "labels", len(model.Labels()))
	return model, nil
}

func displayLocation(location, fallback string) string {
	if location == "" {
		return fallback
	}
	return location
}

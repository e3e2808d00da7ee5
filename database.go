// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package notewell

import (
	"io"
	"log/slog"

	"github.com/poiesic/notewell/ai"
	"github.com/poiesic/notewell/ai/openai"
	"github.com/poiesic/notewell/ingestion"
	"github.com/poiesic/notewell/reembed"
	"github.com/poiesic/notewell/resolve"
	"github.com/poiesic/notewell/search"
	"github.com/poiesic/notewell/storage"
	"github.com/poiesic/notewell/storage/badger"
)

// Database wires the storage backend, repositories, AI provider and
// resolver into one handle the CLI and embedding applications use.
type Database struct {
	backend    *badger.Backend
	noteRepo   storage.NoteRepository
	entityRepo storage.EntityRepository
	provider   ai.AIProvider
	resolver   resolve.Resolver
	logger     *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig      *ai.Config
	resolveConfig *resolve.Config
	provider      ai.AIProvider
}

// WithAIConfig overrides the AI service configuration.
func WithAIConfig(config *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.aiConfig = config
	}
}

// WithResolveConfig overrides the entity resolution configuration.
func WithResolveConfig(config *resolve.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.resolveConfig = config
	}
}

// WithProvider injects a pre-built AI provider instead of constructing
// the OpenAI-backed one. The database takes ownership and closes it.
func WithProvider(provider ai.AIProvider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	// Apply options
	options := &databaseOptions{
		aiConfig:      ai.DefaultConfig(), // Default if not provided
		resolveConfig: resolve.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}
	// Open backend
	backend, err := badger.OpenBackend(filePath, false)
	if err != nil {
		return nil, err
	}

	// Create note repository
	noteRepo, err := badger.NewNoteRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	// Create entity repository
	entityRepo, err := badger.NewEntityRepository(backend)
	if err != nil {
		noteRepo.Close()
		backend.Close()
		return nil, err
	}

	// Create AI provider with configured settings
	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			entityRepo.Close()
			noteRepo.Close()
			backend.Close()
			return nil, err
		}
	}

	resolver, err := resolve.NewResolver(entityRepo, options.resolveConfig)
	if err != nil {
		provider.Close()
		entityRepo.Close()
		noteRepo.Close()
		backend.Close()
		return nil, err
	}

	return &Database{
		backend:    backend,
		noteRepo:   noteRepo,
		entityRepo: entityRepo,
		provider:   provider,
		resolver:   resolver,
		logger:     slog.Default(),
	}, nil
}

func (db *Database) Close() error {
	// Close AI provider first
	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
	}

	// Close repositories
	if err := db.entityRepo.Close(); err != nil {
		db.logger.Error("error closing entity repository", "err", err)
		return err
	}
	if err := db.noteRepo.Close(); err != nil {
		db.logger.Error("error closing note repository", "err", err)
		return err
	}

	// Close backend
	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (db *Database) NoteRepository() storage.NoteRepository {
	return db.noteRepo
}

func (db *Database) EntityRepository() storage.EntityRepository {
	return db.entityRepo
}

func (db *Database) Resolver() resolve.Resolver {
	return db.resolver
}

func (db *Database) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	return ingestion.NewPipeline(db.noteRepo, db.resolver, db.provider, opts...)
}

func (db *Database) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	return search.NewSearcher(db.noteRepo, db.entityRepo, db.provider, opts...)
}

// NewReembedder creates a maintenance job that regenerates every stored
// note embedding. Progress is written to the given writer.
func (db *Database) NewReembedder(config *reembed.Config, progress io.Writer) *reembed.Reembedder {
	return reembed.NewReembedder(db.noteRepo, db.provider.Embedder(), config, progress)
}

// NewRelinker creates a maintenance job that re-extracts entities and
// fills in missing mention links. Progress is written to the given writer.
func (db *Database) NewRelinker(config *reembed.Config, progress io.Writer) *reembed.Relinker {
	return reembed.NewRelinker(db.noteRepo, db.resolver, db.provider.EntityExtractor(), config, progress)
}

package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/notewell/ai"
	"github.com/poiesic/notewell/core"
	"github.com/poiesic/notewell/resolve"
	"github.com/poiesic/notewell/storage"
)

const (
	defaultStepTimeout  = 30 * time.Second
	defaultRetryBackoff = 500 * time.Millisecond
)

// Pipeline orchestrates note ingestion: extraction and embedding run
// concurrently against external services, extracted mentions are
// resolved against the entity registry, and the note with its mention
// rows is persisted as one transactional unit.
type Pipeline struct {
	noteRepository storage.NoteRepository
	resolver       resolve.Resolver
	provider       ai.AIProvider
	bulkPool       *ants.Pool
	stepTimeout    time.Duration
	retryBackoff   time.Duration
	embeddingDims  int
	minConfidence  float64
	logger         *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for bulk ingestion.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.bulkPool != nil {
			p.bulkPool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.bulkPool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithStepTimeout bounds each external sub-step (extraction, embedding)
// per attempt. Default is 30s.
func WithStepTimeout(timeout time.Duration) Option {
	return func(p *Pipeline) error {
		if timeout <= 0 {
			return fmt.Errorf("step timeout must be positive")
		}
		p.stepTimeout = timeout
		return nil
	}
}

// WithRetryBackoff sets the pause before the single retry of a failed
// sub-step. Default is 500ms.
func WithRetryBackoff(backoff time.Duration) Option {
	return func(p *Pipeline) error {
		if backoff < 0 {
			return fmt.Errorf("retry backoff must not be negative")
		}
		p.retryBackoff = backoff
		return nil
	}
}

// WithEmbeddingDims sets the expected embedding dimensionality. A
// returned vector of a different length is treated as an embedding
// failure (warning, vectorless note). 0 disables the check.
func WithEmbeddingDims(dims int) Option {
	return func(p *Pipeline) error {
		if dims < 0 {
			return fmt.Errorf("embedding dims must not be negative")
		}
		p.embeddingDims = dims
		return nil
	}
}

// WithMinMentionConfidence sets the confidence floor below which
// extracted candidates are dropped before resolution. Default 0.5.
func WithMinMentionConfidence(min float64) Option {
	return func(p *Pipeline) error {
		if min < 0 || min > 1 {
			return fmt.Errorf("min mention confidence must be in [0,1]")
		}
		p.minConfidence = min
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	noteRepository storage.NoteRepository,
	resolver resolve.Resolver,
	provider ai.AIProvider,
	opts ...Option,
) (*Pipeline, error) {
	if noteRepository == nil {
		return nil, ErrNoteRepositoryRequired
	}
	if resolver == nil {
		return nil, ErrResolverRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	bulkPool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		noteRepository: noteRepository,
		resolver:       resolver,
		provider:       provider,
		bulkPool:       bulkPool,
		stepTimeout:    defaultStepTimeout,
		retryBackoff:   defaultRetryBackoff,
		minConfidence:  0.5,
		logger:         slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// IngestRequest describes one note to ingest.
type IngestRequest struct {
	// Text is the note body. Required, at most core.MaxNoteLength runes.
	Text string

	// Timestamp is when the note was written. Zero means now.
	Timestamp time.Time

	// SessionId optionally groups notes from one working session.
	SessionId string

	// Tags are optional free-form labels.
	Tags []string
}

// Ingest runs the full pipeline for one note. Extraction and embedding
// run concurrently; either failing degrades the note (a warning in the
// result) rather than failing the call. Validation errors and storage
// failures are hard errors, and a context cancelled before persistence
// discards everything except entities already committed by resolution.
func (p *Pipeline) Ingest(ctx context.Context, req *IngestRequest) (*core.IngestResult, error) {
	note := &core.Note{
		Text:      req.Text,
		Timestamp: req.Timestamp,
		SessionId: req.SessionId,
		Tags:      req.Tags,
	}
	if note.Timestamp.IsZero() {
		note.Timestamp = time.Now().UTC()
	}
	if err := core.ValidateNote(note, 0); err != nil {
		return nil, err
	}

	var warnings []core.Warning

	// Fork-join: extraction and embedding hit independent services
	var (
		wg         sync.WaitGroup
		candidates []ai.ExtractedEntity
		vector     []float32
		extractErr error
		embedErr   error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		extractErr = p.withRetry(ctx, func(stepCtx context.Context) error {
			var err error
			candidates, err = p.provider.EntityExtractor().ExtractEntities(stepCtx, note.Text)
			return err
		})
	}()
	go func() {
		defer wg.Done()
		embedErr = p.withRetry(ctx, func(stepCtx context.Context) error {
			var err error
			vector, err = p.provider.Embedder().EmbedText(stepCtx, note.Text)
			return err
		})
	}()
	wg.Wait()

	if extractErr != nil {
		p.logger.Warn("entity extraction failed, ingesting without mentions", "err", extractErr)
		warnings = append(warnings, core.Warning{
			Kind:    core.WarningExtraction,
			Message: extractErr.Error(),
		})
		candidates = nil
	}
	if embedErr != nil {
		p.logger.Warn("embedding failed, ingesting without vector", "err", embedErr)
		warnings = append(warnings, core.Warning{
			Kind:    core.WarningEmbedding,
			Message: embedErr.Error(),
		})
		vector = nil
	}
	if p.embeddingDims > 0 && len(vector) > 0 && len(vector) != p.embeddingDims {
		p.logger.Warn("embedding dims mismatch, ingesting without vector",
			"want", p.embeddingDims, "got", len(vector))
		warnings = append(warnings, core.Warning{
			Kind:    core.WarningEmbedding,
			Message: fmt.Sprintf("embedding dims mismatch: want %d, got %d", p.embeddingDims, len(vector)),
		})
		vector = nil
	}
	note.Vector = vector

	// Snapshot the raw extraction on the note before resolution
	note.RawMentions = rawMentions(candidates)

	// Resolution: entity creation commits independently of the note
	var resolutions []*resolve.Resolution
	for _, candidate := range candidates {
		if candidate.Confidence < p.minConfidence {
			continue
		}
		res, err := p.resolver.Resolve(ctx, candidate)
		if err != nil {
			warnings = append(warnings, core.Warning{
				Kind:    core.WarningResolution,
				Message: fmt.Sprintf("could not resolve %q: %v", candidate.Text, err),
			})
			continue
		}
		resolutions = append(resolutions, res)
	}

	// A cancelled caller gets nothing persisted from here on
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mentions, linked := resolve.BuildMentions(resolutions)
	if _, err := p.noteRepository.AddNote(ctx, note, mentions); err != nil {
		return nil, err
	}
	for i := range mentions {
		linked[i].MentionId = mentions[i].Id
	}

	p.logger.Info("ingested note",
		"note", note.Id,
		"entities", len(linked),
		"warnings", len(warnings))

	return &core.IngestResult{
		NoteId:         note.Id,
		LinkedEntities: linked,
		Warnings:       warnings,
	}, nil
}

// BulkOutcome is the per-request result of a bulk ingestion.
type BulkOutcome struct {
	Result *core.IngestResult
	Err    error
}

// IngestBulk ingests many notes concurrently on the worker pool.
// Outcomes are returned in request order; one failed note never stops
// the others.
func (p *Pipeline) IngestBulk(ctx context.Context, reqs []*IngestRequest) ([]BulkOutcome, error) {
	outcomes := make([]BulkOutcome, len(reqs))

	var wg sync.WaitGroup
	for i, req := range reqs {
		wg.Add(1)
		i, req := i, req
		submitErr := p.bulkPool.Submit(func() {
			defer wg.Done()
			result, err := p.Ingest(ctx, req)
			outcomes[i] = BulkOutcome{Result: result, Err: err}
		})
		if submitErr != nil {
			wg.Done()
			outcomes[i] = BulkOutcome{Err: submitErr}
		}
	}
	wg.Wait()

	return outcomes, nil
}

// withRetry runs one sub-step with a per-attempt timeout and a single
// backed-off retry. The caller's cancellation always wins.
func (p *Pipeline) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	stepCtx, cancel := context.WithTimeout(ctx, p.stepTimeout)
	err := fn(stepCtx)
	cancel()
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	select {
	case <-time.After(p.retryBackoff):
	case <-ctx.Done():
		return ctx.Err()
	}

	stepCtx, cancel = context.WithTimeout(ctx, p.stepTimeout)
	defer cancel()
	return fn(stepCtx)
}

// rawMentions converts extraction candidates to the snapshot stored on
// the note. All candidates are kept, including those below the linking
// confidence floor.
func rawMentions(candidates []ai.ExtractedEntity) []core.RawMention {
	if len(candidates) == 0 {
		return nil
	}
	raw := make([]core.RawMention, len(candidates))
	for i, c := range candidates {
		raw[i] = core.RawMention{
			Text:       c.Text,
			Type:       c.Type,
			Confidence: c.Confidence,
			SpanStart:  c.SpanStart,
			SpanEnd:    c.SpanEnd,
		}
	}
	return raw
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.bulkPool != nil {
		p.bulkPool.Release()
	}
}

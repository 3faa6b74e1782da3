package upload

import (
	"context"
	"sync"
	"time"

	"domex/api/internal/domain"
	"domex/api/internal/registryclient"
	"domex/api/internal/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var uploadsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "domex_uploads_total",
		Help: "Uploads by outcome (rejected, transfer_failed, registration_failed, succeeded).",
	},
	[]string{"outcome"},
)

// Registrar records metadata for a transferred blob.
type Registrar interface {
	CreateFile(ctx context.Context, payload registryclient.FilePayload) (*registryclient.CreateResult, error)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithAllowedTypes sets the MIME allow-list ("image/*" style wildcards allowed).
func WithAllowedTypes(types []string) Option {
	return func(o *Orchestrator) { o.allowedTypes = types }
}

// WithMaxSize sets the largest accepted file.
func WithMaxSize(maxSizeBytes int64) Option {
	return func(o *Orchestrator) { o.maxSizeBytes = maxSizeBytes }
}

// WithOwnerCollection sets the first segment of storage paths.
func WithOwnerCollection(collection string) Option {
	return func(o *Orchestrator) { o.collection = collection }
}

// WithCompletion registers a callback run after every successful upload. It runs
// on the upload goroutine once the task is done, so calling Wait from it returns
// immediately.
func WithCompletion(fn func(*Result)) Option {
	return func(o *Orchestrator) { o.onComplete = fn }
}

// WithLogger sets the logger used for upload outcomes.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// Orchestrator validates a file, streams it to the blob store and registers
// its metadata. An owner key can have at most one upload in flight.
type Orchestrator struct {
	store        storage.BlobStore
	registry     Registrar
	allowedTypes []string
	maxSizeBytes int64
	collection   string
	onComplete   func(*Result)
	clock        *Clock
	logger       *zap.Logger
	now          func() time.Time

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewOrchestrator creates an orchestrator. Defaults: images and PDFs, 10 MiB,
// collection "domains".
func NewOrchestrator(store storage.BlobStore, registry Registrar, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:        store,
		registry:     registry,
		allowedTypes: []string{"image/*", "application/pdf"},
		maxSizeBytes: 10 * 1024 * 1024,
		collection:   "domains",
		clock:        defaultClock,
		logger:       zap.NewNop(),
		now:          func() time.Time { return time.Now().UTC() },
		inFlight:     make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// UploadFirst uploads the first of several offered files and ignores the rest.
func (o *Orchestrator) UploadFirst(ctx context.Context, candidates []domain.UploadCandidate) (*Task, error) {
	if len(candidates) == 0 {
		return nil, &ValidationError{Reason: "No file supplied"}
	}
	if len(candidates) > 1 {
		o.logger.Info("multiple files supplied, only the first is uploaded",
			zap.Int("count", len(candidates)),
			zap.String("file", candidates[0].DeclaredName))
	}
	return o.Upload(ctx, candidates[0])
}

// Upload validates the candidate synchronously and, if accepted, starts the
// transfer in the background. A rejected candidate never reaches the blob store.
func (o *Orchestrator) Upload(ctx context.Context, candidate domain.UploadCandidate) (*Task, error) {
	if err := Validate(candidate, o.allowedTypes, o.maxSizeBytes); err != nil {
		uploadsTotal.WithLabelValues("rejected").Inc()
		o.logger.Info("upload rejected",
			zap.String("owner", candidate.OwnerKey),
			zap.String("file", candidate.DeclaredName),
			zap.Error(err))
		return nil, err
	}
	if !o.acquire(candidate.OwnerKey) {
		return nil, ErrUploadInProgress
	}

	taskCtx, cancel := context.WithCancel(ctx)
	task := newTask(cancel)
	go o.run(taskCtx, task, candidate)
	return task, nil
}

func (o *Orchestrator) run(ctx context.Context, task *Task, candidate domain.UploadCandidate) {
	defer task.cancel()
	owner := candidate.OwnerKey
	log := o.logger.With(zap.String("owner", owner), zap.String("file", candidate.DeclaredName))

	storedName := StoredName(owner, o.clock.Next(), candidate.DeclaredName)
	storagePath := StoragePath(o.collection, owner, storedName)

	task.report(0)

	body := &progressReader{r: candidate.Content, total: candidate.SizeBytes, report: task.report}
	if err := o.store.PutObject(ctx, storagePath, candidate.DeclaredMimeType, body, candidate.SizeBytes); err != nil {
		task.closeProgress()
		uploadsTotal.WithLabelValues("transfer_failed").Inc()
		log.Error("transfer failed", zap.String("path", storagePath), zap.Error(err))
		o.finish(task, owner, nil, &TransferError{Err: err})
		return
	}
	task.report(100)
	task.closeProgress()

	task.setState(StateFinalizing)
	fetchURL, err := o.store.FetchURL(ctx, storagePath)
	if err != nil {
		uploadsTotal.WithLabelValues("transfer_failed").Inc()
		log.Error("could not resolve fetch URL", zap.String("path", storagePath), zap.Error(err))
		o.finish(task, owner, nil, &TransferError{Err: err})
		return
	}

	payload := registryclient.FilePayload{
		OwnerKey:     owner,
		DisplayName:  candidate.DeclaredName,
		OriginalName: candidate.DeclaredName,
		StoredName:   storedName,
		SizeBytes:    candidate.SizeBytes,
		MimeType:     candidate.DeclaredMimeType,
		StoragePath:  storagePath,
		FetchURL:     fetchURL,
		UploadedAt:   o.now(),
	}

	reg, err := o.registry.CreateFile(ctx, payload)
	if err != nil {
		uploadsTotal.WithLabelValues("registration_failed").Inc()
		// The blob stays where it is; nothing removes it.
		log.Error("registration failed, blob orphaned", zap.String("path", storagePath), zap.Error(err))
		o.finish(task, owner, nil, &RegistrationError{StoragePath: storagePath, Err: err})
		return
	}

	uploadsTotal.WithLabelValues("succeeded").Inc()
	log.Info("upload registered", zap.String("id", reg.ID), zap.String("path", storagePath))
	o.finish(task, owner, &Result{Registration: *reg, Payload: payload}, nil)
}

func (o *Orchestrator) finish(task *Task, owner string, result *Result, err error) {
	task.result, task.err = result, err
	if err != nil {
		task.setState(StateFailed)
	} else {
		task.percent.Store(0)
		task.setState(StateSucceeded)
	}
	o.release(owner)
	close(task.done)

	if result != nil && o.onComplete != nil {
		o.onComplete(result)
	}
}

func (o *Orchestrator) acquire(owner string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.inFlight[owner]; busy {
		return false
	}
	o.inFlight[owner] = struct{}{}
	return true
}

func (o *Orchestrator) release(owner string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inFlight, owner)
}

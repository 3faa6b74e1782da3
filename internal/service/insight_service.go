package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"domex/api/internal/ai"
	"domex/api/internal/config"
	"domex/api/internal/repository"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const marketAnalysisDomains = 20

var insightCacheLookups = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "domex_insight_cache_lookups_total",
		Help: "AI insight cache lookups by kind and result (hit, miss).",
	},
	[]string{"kind", "result"},
)

type Valuation struct {
	Domain      string    `json:"domain"`
	Valuation   string    `json:"valuation"`
	GeneratedAt time.Time `json:"generatedAt"`
}

type Description struct {
	Domain      string    `json:"domain"`
	CurrentBid  string    `json:"currentBid,omitempty"`
	Description string    `json:"description"`
	GeneratedAt time.Time `json:"generatedAt"`
}

type MarketAnalysis struct {
	Analysis    string    `json:"analysis"`
	DomainCount int       `json:"domainCount"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// BulkResult is one name of a bulk enhancement. Error is set instead of
// Description when that name failed.
type BulkResult struct {
	Domain      string `json:"domain"`
	Description string `json:"description,omitempty"`
	Error       string `json:"error,omitempty"`
}

// InsightService generates AI text about listed domains.
type InsightService interface {
	Valuation(ctx context.Context, name string) (*Valuation, error)
	Description(ctx context.Context, name, currentBid string) (*Description, error)
	MarketAnalysis(ctx context.Context) (*MarketAnalysis, error)
	BulkEnhance(ctx context.Context, names []string) ([]BulkResult, error)
}

type insightService struct {
	generator   ai.TextGenerator
	domainRepo  repository.DomainRepository
	cache       *expirable.LRU[string, string]
	bulkLimit   int
	concurrency int
	logger      *zap.Logger
	now         func() time.Time
}

// NewInsightService creates the AI insight service. A nil generator disables it:
// every call then returns ErrAIUnavailable.
func NewInsightService(generator ai.TextGenerator, domainRepo repository.DomainRepository, cfg config.AIConfig, logger *zap.Logger) InsightService {
	size := cfg.CacheSize
	if size <= 0 {
		size = 256
	}
	bulkLimit := cfg.BulkLimit
	if bulkLimit <= 0 {
		bulkLimit = 10
	}
	concurrency := cfg.BulkConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	return &insightService{
		generator:   generator,
		domainRepo:  domainRepo,
		cache:       expirable.NewLRU[string, string](size, nil, cfg.CacheTTL),
		bulkLimit:   bulkLimit,
		concurrency: concurrency,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *insightService) Valuation(ctx context.Context, name string) (*Valuation, error) {
	name, err := s.checkName(name)
	if err != nil {
		return nil, err
	}
	prompt := fmt.Sprintf("You are a domain name appraiser. Estimate the market value of the domain %q. "+
		"Consider length, memorability, extension, keywords and comparable sales. "+
		"Answer with an estimated price range in USD followed by a short justification.", name)

	text, err := s.generate(ctx, "valuation", "valuation:"+name, prompt)
	if err != nil {
		return nil, err
	}
	return &Valuation{Domain: name, Valuation: text, GeneratedAt: s.now()}, nil
}

func (s *insightService) Description(ctx context.Context, name, currentBid string) (*Description, error) {
	name, err := s.checkName(name)
	if err != nil {
		return nil, err
	}
	currentBid = strings.TrimSpace(currentBid)
	text, err := s.generate(ctx, "description", "description:"+name+"|"+currentBid, descriptionPrompt(name, currentBid))
	if err != nil {
		return nil, err
	}
	return &Description{Domain: name, CurrentBid: currentBid, Description: text, GeneratedAt: s.now()}, nil
}

// MarketAnalysis summarises up to 20 listings, taken in name order.
func (s *insightService) MarketAnalysis(ctx context.Context) (*MarketAnalysis, error) {
	if s.generator == nil {
		return nil, ErrAIUnavailable
	}
	listings, err := s.domainRepo.List(ctx, marketAnalysisDomains, 0)
	if err != nil {
		return nil, mapRepoError(err)
	}

	var sb strings.Builder
	key := "market:"
	for _, l := range listings {
		fmt.Fprintf(&sb, "- %s: status %s, highest bid %g %s, %s remaining\n",
			l.Name, l.Status, l.HighestBid, l.Currency, l.TimeRemaining)
		key += l.Name + "=" + fmt.Sprint(l.HighestBid) + ";"
	}
	prompt := "You are a domain market analyst. Here are the domains currently at auction:\n" + sb.String() +
		"Summarise the market: which names look undervalued, which trends stand out, and what bidders should watch."

	text, err := s.generate(ctx, "market", key, prompt)
	if err != nil {
		return nil, err
	}
	return &MarketAnalysis{Analysis: text, DomainCount: len(listings), GeneratedAt: s.now()}, nil
}

// BulkEnhance writes a description for each name with bounded concurrency. A
// failing name is reported in its own result and does not fail the batch.
func (s *insightService) BulkEnhance(ctx context.Context, names []string) ([]BulkResult, error) {
	if s.generator == nil {
		return nil, ErrAIUnavailable
	}
	if len(names) == 0 {
		return nil, validationError("domainNames must contain at least one domain")
	}
	if len(names) > s.bulkLimit {
		return nil, validationError(fmt.Sprintf("domainNames may contain at most %d domains", s.bulkLimit))
	}

	results := make([]BulkResult, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			results[i].Domain = name
			d, err := s.Description(gctx, name, "")
			if err != nil {
				results[i].Error = err.Error()
				return nil
			}
			results[i].Description = d.Description
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

func (s *insightService) checkName(name string) (string, error) {
	if s.generator == nil {
		return "", ErrAIUnavailable
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "", validationError("domain name is required")
	}
	return name, nil
}

func (s *insightService) generate(ctx context.Context, kind, key, prompt string) (string, error) {
	if text, ok := s.cache.Get(key); ok {
		insightCacheLookups.WithLabelValues(kind, "hit").Inc()
		return text, nil
	}
	insightCacheLookups.WithLabelValues(kind, "miss").Inc()

	text, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		s.logger.Warn("ai generation failed", zap.String("kind", kind), zap.Error(err))
		return "", fmt.Errorf("generate %s: %w", kind, err)
	}
	s.cache.Add(key, text)
	return text, nil
}

func descriptionPrompt(name, currentBid string) string {
	prompt := fmt.Sprintf("Write a compelling two-paragraph marketing description for the domain %q, "+
		"aimed at bidders in a domain auction. Mention possible uses and target audiences.", name)
	if currentBid != "" {
		prompt += " The current highest bid is " + currentBid + "."
	}
	return prompt
}

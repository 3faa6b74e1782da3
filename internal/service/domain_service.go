package service

import (
	"context"
	"strconv"

	"domex/api/internal/domain"
	"domex/api/internal/repository"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Page is a limit/skip window over the listings.
type Page struct {
	Limit int64
	Skip  int64
}

// ParsePage reads limit and skip query values. Missing, malformed or negative
// values fall back to the defaults; limit is capped at MaxPageLimit.
func ParsePage(limit, skip string) Page {
	p := Page{Limit: DefaultPageLimit}
	if n, err := strconv.ParseInt(limit, 10, 64); err == nil && n > 0 {
		p.Limit = min(n, MaxPageLimit)
	}
	if n, err := strconv.ParseInt(skip, 10, 64); err == nil && n > 0 {
		p.Skip = n
	}
	return p
}

// DomainService reads auction listings.
type DomainService interface {
	ListDomains(ctx context.Context, page Page) ([]domain.DomainListing, error)
}

type domainService struct {
	domainRepo repository.DomainRepository
}

func NewDomainService(domainRepo repository.DomainRepository) DomainService {
	return &domainService{domainRepo: domainRepo}
}

func (s *domainService) ListDomains(ctx context.Context, page Page) ([]domain.DomainListing, error) {
	if page.Limit <= 0 {
		page.Limit = DefaultPageLimit
	}
	page.Limit = min(page.Limit, MaxPageLimit)
	page.Skip = max(page.Skip, 0)

	listings, err := s.domainRepo.List(ctx, page.Limit, page.Skip)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if listings == nil {
		listings = []domain.DomainListing{}
	}
	return listings, nil
}

package memory

import (
	"context"
	"sort"
	"sync"

	"domex/api/internal/domain"
	"domex/api/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DomainRepository implements repository.DomainRepository using in-memory storage.
type DomainRepository struct {
	mu       sync.RWMutex
	listings []domain.DomainListing
}

// NewDomainRepository creates a repository seeded with the given listings.
func NewDomainRepository(listings ...domain.DomainListing) *DomainRepository {
	r := &DomainRepository{}
	for _, l := range listings {
		r.Add(l)
	}
	return r
}

var _ repository.DomainRepository = (*DomainRepository)(nil)

// Add stores a listing, assigning an id when missing.
func (r *DomainRepository) Add(listing domain.DomainListing) {
	if listing.ID.IsZero() {
		listing.ID = primitive.NewObjectID()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listings = append(r.listings, listing)
	sort.SliceStable(r.listings, func(i, j int) bool {
		return r.listings[i].Name < r.listings[j].Name
	})
}

func (r *DomainRepository) List(ctx context.Context, limit, skip int64) ([]domain.DomainListing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []domain.DomainListing{}
	if skip >= int64(len(r.listings)) {
		return out, nil
	}
	end := int64(len(r.listings))
	if limit > 0 && skip+limit < end {
		end = skip + limit
	}
	return append(out, r.listings[skip:end]...), nil
}

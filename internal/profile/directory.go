// Package profile resolves user ids to display profiles for denormalised reads.
package profile

import (
	"context"
	"log"

	"bkpconnect/backend/internal/cache"
	"bkpconnect/backend/internal/models"
	"bkpconnect/backend/internal/store"
)

// Directory resolves ids through the cache and falls back to the user store.
type Directory struct {
	users store.Users
	cache cache.ProfileCache
}

func NewDirectory(users store.Users, c cache.ProfileCache) *Directory {
	if c == nil {
		c = cache.NewNoopProfileCache()
	}
	return &Directory{users: users, cache: c}
}

// Resolve returns a profile for every id. Unknown ids map to a bare profile carrying
// only the id, so a log entry never disappears because its author cannot be read.
func (d *Directory) Resolve(ctx context.Context, ids []string) (map[string]models.Profile, error) {
	ids = dedupe(ids)
	out, err := d.cache.Get(ctx, ids)
	if err != nil {
		log.Printf("profile cache get failed: %v", err)
		out = make(map[string]models.Profile, len(ids))
	}

	var missing []string
	for _, id := range ids {
		if _, ok := out[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		fetched, err := d.users.Profiles(ctx, missing)
		if err != nil {
			return nil, err
		}
		for _, p := range fetched {
			out[p.ID] = p
		}
		if err := d.cache.Set(ctx, fetched); err != nil {
			log.Printf("profile cache set failed: %v", err)
		}
	}

	for _, id := range ids {
		if _, ok := out[id]; !ok {
			out[id] = models.Profile{ID: id}
		}
	}
	return out, nil
}

// List resolves ids and keeps their order.
func (d *Directory) List(ctx context.Context, ids []string) ([]models.Profile, error) {
	resolved, err := d.Resolve(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]models.Profile, 0, len(ids))
	for _, id := range ids {
		out = append(out, resolved[id])
	}
	return out, nil
}

// One resolves a single id.
func (d *Directory) One(ctx context.Context, id string) (models.Profile, error) {
	resolved, err := d.Resolve(ctx, []string{id})
	if err != nil {
		return models.Profile{}, err
	}
	return resolved[id], nil
}

// Invalidate drops a cached profile after its source changed.
func (d *Directory) Invalidate(ctx context.Context, id string) {
	if err := d.cache.Invalidate(ctx, id); err != nil {
		log.Printf("profile cache invalidate failed: %v", err)
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

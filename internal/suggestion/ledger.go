// Package suggestion is the global "people you may know" ledger. Every user is
// registered once at signup; each requester sees the ledger minus the users they have
// dismissed.
package suggestion

import (
	"context"
	"errors"
	"time"

	"bkpconnect/backend/internal/apperr"
	"bkpconnect/backend/internal/models"
	"bkpconnect/backend/internal/profile"
	"bkpconnect/backend/internal/store"
)

type Ledger struct {
	entries   store.Suggestions
	relations store.Relations
	profiles  *profile.Directory
	now       func() time.Time
}

func NewLedger(entries store.Suggestions, relations store.Relations, profiles *profile.Directory) *Ledger {
	return &Ledger{
		entries:   entries,
		relations: relations,
		profiles:  profiles,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Register adds userID to the ledger. Registering twice keeps the first entry.
func (l *Ledger) Register(ctx context.Context, userID string) error {
	err := l.entries.RegisterSuggestion(ctx, models.SuggestionEntry{UserID: userID, CreatedAt: l.now()})
	if err != nil {
		return apperr.Upstream("failed to register suggestion", err)
	}
	return nil
}

// Result is one page of suggestions. Scanned counts the ledger entries the page was
// cut from, before filtering; when it equals the page limit there may be more.
type Result struct {
	Suggestions []models.Suggestion
	Scanned     int
}

// List reads one page of the ledger, newest first, and then drops the requester and the
// users in the requester's dismissed set. Filtering happens after paging, so a page can
// hold fewer entries than the limit even when more suggestions exist further on.
func (l *Ledger) List(ctx context.Context, requester string, page store.Page) (*Result, error) {
	entries, err := l.entries.Suggestions(ctx, page)
	if err != nil {
		return nil, apperr.Upstream("failed to load suggestions", err)
	}
	dismissed, err := l.relations.Dismissed(ctx, requester)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Upstream("failed to load dismissed suggestions", err)
	}

	hidden := make(map[string]bool, len(dismissed)+1)
	hidden[requester] = true
	for _, id := range dismissed {
		hidden[id] = true
	}

	kept := make([]models.SuggestionEntry, 0, len(entries))
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if hidden[e.UserID] {
			continue
		}
		kept = append(kept, e)
		ids = append(ids, e.UserID)
	}

	profiles, err := l.profiles.Resolve(ctx, ids)
	if err != nil {
		return nil, apperr.Upstream("failed to resolve profiles", err)
	}
	out := make([]models.Suggestion, 0, len(kept))
	for _, e := range kept {
		out = append(out, models.Suggestion{Profile: profiles[e.UserID], CreatedAt: e.CreatedAt})
	}
	return &Result{Suggestions: out, Scanned: len(entries)}, nil
}

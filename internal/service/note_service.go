package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tleenotes/internal/cache"
	apperrors "tleenotes/internal/errors"
	"tleenotes/internal/metrics"
	"tleenotes/internal/model"
	"tleenotes/internal/repository"
)

const (
	noteCacheTTL = 5 * time.Minute
	// noteVersionTTL outlives every entry written under an older version.
	noteVersionTTL = time.Hour

	// DefaultPage and DefaultPerPage apply when the client omits them.
	DefaultPage    = 1
	DefaultPerPage = 20
	// MaxPerPage caps positive page sizes.
	MaxPerPage = 100
	// AllPerPage requests every matching note as a single page.
	AllPerPage = repository.AllPerPage

	maxIdentifierLen = 255
)

// reservedIdentifiers collide with static routes under /notes and could
// never be fetched by identifier.
var reservedIdentifiers = map[string]struct{}{
	"all": {},
}

// NoteCache is the part of the redis cache notes read through. A nil
// *cache.Client satisfies it as an always-empty cache.
type NoteCache interface {
	GetJSON(ctx context.Context, key string, dst any) bool
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
	Counter(ctx context.Context, key string) int64
	Incr(ctx context.Context, key string, ttl time.Duration) int64
}

// NoteInput is the client supplied content of a note.
type NoteInput struct {
	Identifier string
	Note       string
	Author     string
}

// ImportResult summarises a bulk import.
type ImportResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// Total is the number of notes written.
func (r ImportResult) Total() int {
	return r.Created + r.Updated
}

// NoteService exposes note operations.
type NoteService interface {
	// Save creates the note or overwrites the one with the same identifier.
	Save(ctx context.Context, in NoteInput) (note *model.Note, created bool, err error)
	Get(ctx context.Context, identifier string) (*model.Note, error)
	List(ctx context.Context, search string) ([]model.Note, error)
	Paginate(ctx context.Context, page, perPage int, search string) (*model.NotePage, error)
	Update(ctx context.Context, id uint, text, author string) (*model.Note, error)
	Delete(ctx context.Context, id uint) error
	DeleteByIdentifier(ctx context.Context, identifier string) error
	Import(ctx context.Context, items []NoteInput) (ImportResult, error)
}

type noteService struct {
	repo  repository.NoteRepository
	cache NoteCache
	log   zerolog.Logger
}

// NewNoteService builds a NoteService with repository and cache.
func NewNoteService(repo repository.NoteRepository, nc NoteCache, log zerolog.Logger) NoteService {
	if nc == nil {
		nc = (*cache.Client)(nil)
	}
	return &noteService{
		repo:  repo,
		cache: nc,
		log:   log.With().Str("component", "notes").Logger(),
	}
}

// Cached notes live under a per-identifier version. Writers bump the
// version, so a reader that loaded a row before the write stores it under a
// key no later reader looks up.
func versionKey(identifier string) string {
	return "note:version:" + identifier
}

func cacheKey(identifier string, version int64) string {
	return fmt.Sprintf("note:%d:%s", version, identifier)
}

func (s *noteService) invalidate(ctx context.Context, identifier string) {
	s.cache.Incr(ctx, versionKey(identifier), noteVersionTTL)
}

func validateNoteInput(in NoteInput) error {
	if strings.TrimSpace(in.Identifier) == "" {
		return fmt.Errorf("%w: identifier is required", apperrors.ErrValidation)
	}
	if len(in.Identifier) > maxIdentifierLen {
		return fmt.Errorf("%w: identifier must be at most %d characters", apperrors.ErrValidation, maxIdentifierLen)
	}
	if _, ok := reservedIdentifiers[in.Identifier]; ok {
		return fmt.Errorf("%w: identifier %q is reserved", apperrors.ErrValidation, in.Identifier)
	}
	return nil
}

func (s *noteService) Save(ctx context.Context, in NoteInput) (*model.Note, bool, error) {
	if err := validateNoteInput(in); err != nil {
		return nil, false, err
	}

	note, created, err := s.repo.Upsert(ctx, in.Identifier, in.Note, in.Author)
	if err != nil {
		return nil, false, fmt.Errorf("upsert note %q: %w", in.Identifier, err)
	}
	s.invalidate(ctx, note.Identifier)

	result := "updated"
	if created {
		result = "created"
	}
	metrics.NoteUpsertsTotal.WithLabelValues(result).Inc()
	s.log.Info().
		Uint("note_id", note.ID).
		Str("identifier", note.Identifier).
		Str("result", result).
		Msg("note saved")

	return note, created, nil
}

func (s *noteService) Get(ctx context.Context, identifier string) (*model.Note, error) {
	key := cacheKey(identifier, s.cache.Counter(ctx, versionKey(identifier)))

	var cached model.Note
	if s.cache.GetJSON(ctx, key, &cached) {
		metrics.NoteCacheLookupsTotal.WithLabelValues("hit").Inc()
		return &cached, nil
	}
	metrics.NoteCacheLookupsTotal.WithLabelValues("miss").Inc()

	note, err := s.repo.FindByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}
	_ = s.cache.SetJSON(ctx, key, note, noteCacheTTL)
	return note, nil
}

func (s *noteService) List(ctx context.Context, search string) ([]model.Note, error) {
	return s.repo.List(ctx, search)
}

// NormalizePage validates paging input and caps oversized pages. Pages whose
// row offset would not fit in an int are rejected.
func NormalizePage(page, perPage int) (int, int, error) {
	if page < 1 {
		return 0, 0, fmt.Errorf("%w: page must be at least 1", apperrors.ErrValidation)
	}
	switch {
	case perPage == AllPerPage:
		return page, perPage, nil
	case perPage < 1:
		return 0, 0, fmt.Errorf("%w: per_page must be positive or -1 for all", apperrors.ErrValidation)
	case perPage > MaxPerPage:
		perPage = MaxPerPage
	}
	if page-1 > math.MaxInt/perPage {
		return 0, 0, fmt.Errorf("%w: page is out of range", apperrors.ErrValidation)
	}
	return page, perPage, nil
}

func (s *noteService) Paginate(ctx context.Context, page, perPage int, search string) (*model.NotePage, error) {
	page, perPage, err := NormalizePage(page, perPage)
	if err != nil {
		return nil, err
	}
	return s.repo.Paginate(ctx, page, perPage, search)
}

func (s *noteService) Update(ctx context.Context, id uint, text, author string) (*model.Note, error) {
	note, err := s.repo.UpdateByID(ctx, id, text, author)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, note.Identifier)
	metrics.NoteUpsertsTotal.WithLabelValues("updated").Inc()
	s.log.Info().Uint("note_id", id).Msg("note updated")
	return note, nil
}

func (s *noteService) Delete(ctx context.Context, id uint) error {
	note, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	deleted, err := s.repo.DeleteByID(ctx, id)
	if err != nil {
		return fmt.Errorf("delete note %d: %w", id, err)
	}
	s.invalidate(ctx, note.Identifier)
	if !deleted {
		return apperrors.ErrNoteNotFound
	}
	metrics.NotesDeletedTotal.Inc()
	s.log.Info().Uint("note_id", id).Str("identifier", note.Identifier).Msg("note deleted")
	return nil
}

func (s *noteService) DeleteByIdentifier(ctx context.Context, identifier string) error {
	deleted, err := s.repo.DeleteByIdentifier(ctx, identifier)
	if err != nil {
		return fmt.Errorf("delete note %q: %w", identifier, err)
	}
	s.invalidate(ctx, identifier)
	if !deleted {
		return apperrors.ErrNoteNotFound
	}
	metrics.NotesDeletedTotal.Inc()
	s.log.Info().Str("identifier", identifier).Msg("note deleted")
	return nil
}

// Import upserts items in order and stops at the first failure. Items are
// validated up front so a bad payload writes nothing.
func (s *noteService) Import(ctx context.Context, items []NoteInput) (ImportResult, error) {
	var result ImportResult
	for i, item := range items {
		if err := validateNoteInput(item); err != nil {
			return result, fmt.Errorf("item %d: %w", i, err)
		}
	}

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		_, created, err := s.Save(ctx, item)
		if err != nil {
			return result, err
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	s.log.Info().
		Int("created", result.Created).
		Int("updated", result.Updated).
		Msg("notes imported")
	return result, nil
}

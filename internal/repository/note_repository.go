package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	apperrors "tleenotes/internal/errors"
	"tleenotes/internal/model"
)

// AllPerPage is the per_page sentinel that returns every matching row as one page.
const AllPerPage = -1

// likeEscaper escapes LIKE wildcards with '!', an escape character every
// supported dialect accepts without string-literal quirks.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// NoteRepository defines note persistence operations.
type NoteRepository interface {
	FindByID(ctx context.Context, id uint) (*model.Note, error)
	FindByIdentifier(ctx context.Context, identifier string) (*model.Note, error)
	List(ctx context.Context, search string) ([]model.Note, error)
	Paginate(ctx context.Context, page, perPage int, search string) (*model.NotePage, error)
	// Upsert creates the note or overwrites note and author of the existing row
	// with the same identifier. created reports whether a row was inserted.
	Upsert(ctx context.Context, identifier, text, author string) (note *model.Note, created bool, err error)
	UpdateByID(ctx context.Context, id uint, text, author string) (*model.Note, error)
	DeleteByID(ctx context.Context, id uint) (bool, error)
	DeleteByIdentifier(ctx context.Context, identifier string) (bool, error)
}

type noteRepository struct {
	db *gorm.DB
}

// NewNoteRepository builds a GORM-backed note repository.
func NewNoteRepository(db *gorm.DB) NoteRepository {
	return &noteRepository{db: db}
}

func (r *noteRepository) FindByID(ctx context.Context, id uint) (*model.Note, error) {
	var note model.Note
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&note).Error; err != nil {
		return nil, notFound(err)
	}
	return &note, nil
}

func (r *noteRepository) FindByIdentifier(ctx context.Context, identifier string) (*model.Note, error) {
	var note model.Note
	if err := r.db.WithContext(ctx).Where("identifier = ?", identifier).First(&note).Error; err != nil {
		return nil, notFound(err)
	}
	return &note, nil
}

// filtered returns a fresh query over notes narrowed by a case-insensitive
// substring match on identifier, author or note text. Both sides are folded
// in Go, so matching does not depend on the database's LOWER().
func (r *noteRepository) filtered(ctx context.Context, search string) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&model.Note{})
	term := model.SearchTerm(search)
	if term == "" {
		return q
	}
	return q.Where("search_text LIKE ? ESCAPE '!'", "%"+likeEscaper.Replace(term)+"%")
}

func (r *noteRepository) List(ctx context.Context, search string) ([]model.Note, error) {
	notes := make([]model.Note, 0)
	if err := r.filtered(ctx, search).Order("id").Find(&notes).Error; err != nil {
		return nil, err
	}
	return notes, nil
}

// Paginate expects page >= 1 and perPage >= 1 or AllPerPage; callers validate.
func (r *noteRepository) Paginate(ctx context.Context, page, perPage int, search string) (*model.NotePage, error) {
	var total int64
	if err := r.filtered(ctx, search).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count notes: %w", err)
	}

	if perPage == AllPerPage {
		items, err := r.List(ctx, search)
		if err != nil {
			return nil, err
		}
		return &model.NotePage{
			Items:      items,
			TotalCount: total,
			Page:       1,
			PerPage:    int(total),
			TotalPages: 1,
		}, nil
	}

	items := make([]model.Note, 0, perPage)
	offset := (page - 1) * perPage
	if err := r.filtered(ctx, search).Order("id").Offset(offset).Limit(perPage).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}

	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	return &model.NotePage{
		Items:      items,
		TotalCount: total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}, nil
}

func (r *noteRepository) Upsert(ctx context.Context, identifier, text, author string) (*model.Note, bool, error) {
	existing, err := r.FindByIdentifier(ctx, identifier)
	if err == nil {
		note, err := r.overwrite(ctx, existing, text, author)
		return note, false, err
	}
	if !errors.Is(err, apperrors.ErrNoteNotFound) {
		return nil, false, err
	}

	note := &model.Note{Identifier: identifier, Note: text, Author: author}
	createErr := r.db.WithContext(ctx).Create(note).Error
	if createErr == nil {
		return note, true, nil
	}
	if !isDuplicateKey(createErr) {
		return nil, false, fmt.Errorf("insert note: %w", createErr)
	}

	// A concurrent request inserted the same identifier first; apply ours on top.
	existing, err = r.FindByIdentifier(ctx, identifier)
	if err != nil {
		return nil, false, err
	}
	updated, err := r.overwrite(ctx, existing, text, author)
	return updated, false, err
}

func (r *noteRepository) UpdateByID(ctx context.Context, id uint, text, author string) (*model.Note, error) {
	existing, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.overwrite(ctx, existing, text, author)
}

// overwrite sets note and author on existing and returns the refreshed row.
func (r *noteRepository) overwrite(ctx context.Context, existing *model.Note, text, author string) (*model.Note, error) {
	err := r.db.WithContext(ctx).Model(&model.Note{}).Where("id = ?", existing.ID).Updates(map[string]interface{}{
		"note":        text,
		"author":      author,
		"search_text": model.SearchDocument(existing.Identifier, author, text),
	}).Error
	if err != nil {
		return nil, fmt.Errorf("update note %d: %w", existing.ID, err)
	}
	return r.FindByID(ctx, existing.ID)
}

func (r *noteRepository) DeleteByID(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Note{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *noteRepository) DeleteByIdentifier(ctx context.Context, identifier string) (bool, error) {
	res := r.db.WithContext(ctx).Where("identifier = ?", identifier).Delete(&model.Note{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrNoteNotFound
	}
	return err
}

package service

import (
	"context"
	"encoding/json"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "tleenotes/internal/errors"
	"tleenotes/internal/model"
)

func newNoteService(repo *MockNoteRepository) NoteService {
	return NewNoteService(repo, nil, zerolog.Nop())
}

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		name        string
		page        int
		perPage     int
		wantPage    int
		wantPerPage int
		wantErr     bool
	}{
		{name: "defaults", page: DefaultPage, perPage: DefaultPerPage, wantPage: 1, wantPerPage: 20},
		{name: "capped", page: 2, perPage: 500, wantPage: 2, wantPerPage: MaxPerPage},
		{name: "all sentinel", page: 3, perPage: AllPerPage, wantPage: 3, wantPerPage: AllPerPage},
		{name: "zero page", page: 0, perPage: 10, wantErr: true},
		{name: "negative page", page: -1, perPage: 10, wantErr: true},
		{name: "zero per page", page: 1, perPage: 0, wantErr: true},
		{name: "below sentinel", page: 1, perPage: -2, wantErr: true},
		{name: "last addressable page", page: math.MaxInt / 2, perPage: 2, wantPage: math.MaxInt / 2, wantPerPage: 2},
		{name: "offset overflows", page: math.MaxInt/2 + 2, perPage: 2, wantErr: true},
		{name: "huge page capped per page", page: math.MaxInt, perPage: 500, wantErr: true},
		{name: "huge page all sentinel", page: math.MaxInt, perPage: AllPerPage, wantPage: math.MaxInt, wantPerPage: AllPerPage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, perPage, err := NormalizePage(tt.page, tt.perPage)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPage, page)
			assert.Equal(t, tt.wantPerPage, perPage)
		})
	}
}

func TestNoteService_Save(t *testing.T) {
	tests := []struct {
		name        string
		input       NoteInput
		setupMock   func(*MockNoteRepository)
		wantCreated bool
		wantErr     error
	}{
		{
			name:  "new identifier",
			input: NoteInput{Identifier: "n1", Note: "hi", Author: "alice"},
			setupMock: func(m *MockNoteRepository) {
				m.On("Upsert", mock.Anything, "n1", "hi", "alice").
					Return(&model.Note{ID: 1, Identifier: "n1", Note: "hi", Author: "alice"}, true, nil)
			},
			wantCreated: true,
		},
		{
			name:  "existing identifier",
			input: NoteInput{Identifier: "n1", Note: "bye", Author: "bob"},
			setupMock: func(m *MockNoteRepository) {
				m.On("Upsert", mock.Anything, "n1", "bye", "bob").
					Return(&model.Note{ID: 1, Identifier: "n1", Note: "bye", Author: "bob"}, false, nil)
			},
		},
		{
			name:      "blank identifier",
			input:     NoteInput{Identifier: "  ", Note: "x", Author: "y"},
			setupMock: func(m *MockNoteRepository) {},
			wantErr:   apperrors.ErrValidation,
		},
		{
			name:  "store failure",
			input: NoteInput{Identifier: "n2", Note: "x", Author: "y"},
			setupMock: func(m *MockNoteRepository) {
				m.On("Upsert", mock.Anything, "n2", "x", "y").Return(nil, false, assert.AnError)
			},
			wantErr: assert.AnError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockNoteRepository)
			tt.setupMock(repo)

			note, created, err := newNoteService(repo).Save(context.Background(), tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, note)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantCreated, created)
				assert.Equal(t, tt.input.Note, note.Note)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestNoteService_PaginateValidatesBeforeQuerying(t *testing.T) {
	repo := new(MockNoteRepository)
	svc := newNoteService(repo)

	_, err := svc.Paginate(context.Background(), 0, 20, "")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	repo.AssertNotCalled(t, "Paginate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	repo.On("Paginate", mock.Anything, 1, MaxPerPage, "milk").Return(&model.NotePage{Page: 1, PerPage: MaxPerPage}, nil)
	page, err := svc.Paginate(context.Background(), 1, 1000, "milk")
	require.NoError(t, err)
	assert.Equal(t, MaxPerPage, page.PerPage)
	repo.AssertExpectations(t)
}

func TestNoteService_Delete(t *testing.T) {
	t.Run("existing note", func(t *testing.T) {
		repo := new(MockNoteRepository)
		repo.On("FindByID", mock.Anything, uint(1)).Return(&model.Note{ID: 1, Identifier: "n1"}, nil)
		repo.On("DeleteByID", mock.Anything, uint(1)).Return(true, nil)

		require.NoError(t, newNoteService(repo).Delete(context.Background(), 1))
		repo.AssertExpectations(t)
	})

	t.Run("missing note", func(t *testing.T) {
		repo := new(MockNoteRepository)
		repo.On("FindByID", mock.Anything, uint(9)).Return(nil, apperrors.ErrNoteNotFound)

		err := newNoteService(repo).Delete(context.Background(), 9)
		assert.ErrorIs(t, err, apperrors.ErrNoteNotFound)
		repo.AssertNotCalled(t, "DeleteByID", mock.Anything, mock.Anything)
	})

	t.Run("deleted concurrently", func(t *testing.T) {
		repo := new(MockNoteRepository)
		repo.On("FindByID", mock.Anything, uint(2)).Return(&model.Note{ID: 2, Identifier: "n2"}, nil)
		repo.On("DeleteByID", mock.Anything, uint(2)).Return(false, nil)

		err := newNoteService(repo).Delete(context.Background(), 2)
		assert.ErrorIs(t, err, apperrors.ErrNoteNotFound)
	})
}

func TestNoteService_DeleteByIdentifier(t *testing.T) {
	repo := new(MockNoteRepository)
	repo.On("DeleteByIdentifier", mock.Anything, "n1").Return(true, nil).Once()
	repo.On("DeleteByIdentifier", mock.Anything, "n1").Return(false, nil).Once()
	svc := newNoteService(repo)

	require.NoError(t, svc.DeleteByIdentifier(context.Background(), "n1"))
	assert.ErrorIs(t, svc.DeleteByIdentifier(context.Background(), "n1"), apperrors.ErrNoteNotFound)
	repo.AssertExpectations(t)
}

func TestNoteService_Import(t *testing.T) {
	t.Run("counts created and updated", func(t *testing.T) {
		repo := new(MockNoteRepository)
		repo.On("Upsert", mock.Anything, "a", "1", "x").Return(&model.Note{ID: 1, Identifier: "a"}, true, nil)
		repo.On("Upsert", mock.Anything, "b", "2", "x").Return(&model.Note{ID: 2, Identifier: "b"}, false, nil)
		repo.On("Upsert", mock.Anything, "c", "3", "x").Return(&model.Note{ID: 3, Identifier: "c"}, true, nil)

		result, err := newNoteService(repo).Import(context.Background(), []NoteInput{
			{Identifier: "a", Note: "1", Author: "x"},
			{Identifier: "b", Note: "2", Author: "x"},
			{Identifier: "c", Note: "3", Author: "x"},
		})
		require.NoError(t, err)
		assert.Equal(t, ImportResult{Created: 2, Updated: 1}, result)
		assert.Equal(t, 3, result.Total())
		repo.AssertExpectations(t)
	})

	t.Run("invalid item writes nothing", func(t *testing.T) {
		repo := new(MockNoteRepository)

		_, err := newNoteService(repo).Import(context.Background(), []NoteInput{
			{Identifier: "a", Note: "1", Author: "x"},
			{Identifier: "", Note: "2", Author: "x"},
		})
		assert.ErrorIs(t, err, apperrors.ErrValidation)
		repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestNoteService_GetFallsThroughWithoutCache(t *testing.T) {
	repo := new(MockNoteRepository)
	repo.On("FindByIdentifier", mock.Anything, "n1").Return(&model.Note{ID: 1, Identifier: "n1"}, nil).Twice()
	svc := newNoteService(repo)

	for i := 0; i < 2; i++ {
		note, err := svc.Get(context.Background(), "n1")
		require.NoError(t, err)
		assert.Equal(t, uint(1), note.ID)
	}
	repo.AssertExpectations(t)
}

func TestNoteService_SaveRejectsReservedIdentifier(t *testing.T) {
	repo := new(MockNoteRepository)
	svc := newNoteService(repo)

	_, _, err := svc.Save(context.Background(), NoteInput{Identifier: "all", Note: "x"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.Import(context.Background(), []NoteInput{{Identifier: "ok"}, {Identifier: "all"}})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// memoryCache is an in-process NoteCache.
type memoryCache struct {
	mu       sync.Mutex
	values   map[string][]byte
	counters map[string]int64
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: map[string][]byte{}, counters: map[string]int64{}}
}

func (c *memoryCache) GetJSON(_ context.Context, key string, dst any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.values[key]
	return ok && json.Unmarshal(data, dst) == nil
}

func (c *memoryCache) SetJSON(_ context.Context, key string, v any, _ time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = data
	return nil
}

func (c *memoryCache) Counter(_ context.Context, key string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counters[key]
}

func (c *memoryCache) Incr(_ context.Context, key string, _ time.Duration) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[key]++
	return c.counters[key]
}

func TestNoteService_GetServesCachedNote(t *testing.T) {
	repo := new(MockNoteRepository)
	repo.On("FindByIdentifier", mock.Anything, "n1").Return(&model.Note{ID: 1, Identifier: "n1", Note: "hi"}, nil).Once()
	svc := NewNoteService(repo, newMemoryCache(), zerolog.Nop())

	for i := 0; i < 3; i++ {
		note, err := svc.Get(context.Background(), "n1")
		require.NoError(t, err)
		assert.Equal(t, "hi", note.Note)
	}
	repo.AssertExpectations(t)
}

func TestNoteService_WriteDuringCacheFillIsNotMasked(t *testing.T) {
	ctx := context.Background()
	repo := new(MockNoteRepository)
	svc := NewNoteService(repo, newMemoryCache(), zerolog.Nop())

	stale := &model.Note{ID: 1, Identifier: "n1", Note: "old"}
	fresh := &model.Note{ID: 1, Identifier: "n1", Note: "new"}
	repo.On("Upsert", mock.Anything, "n1", "new", "ann").Return(fresh, false, nil).Once()

	// The write lands after the reader loaded the row but before it fills the cache.
	repo.On("FindByIdentifier", mock.Anything, "n1").Return(stale, nil).Once().Run(func(mock.Arguments) {
		_, _, err := svc.Save(ctx, NoteInput{Identifier: "n1", Note: "new", Author: "ann"})
		require.NoError(t, err)
	})
	repo.On("FindByIdentifier", mock.Anything, "n1").Return(fresh, nil).Once()

	note, err := svc.Get(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, "old", note.Note)

	for i := 0; i < 2; i++ {
		note, err = svc.Get(ctx, "n1")
		require.NoError(t, err)
		assert.Equal(t, "new", note.Note)
	}
	repo.AssertExpectations(t)
}

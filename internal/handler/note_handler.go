package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	apperrors "tleenotes/internal/errors"
	"tleenotes/internal/service"
)

// NoteHandler handles note endpoints.
type NoteHandler struct {
	svc service.NoteService
}

// NewNoteHandler creates a new note handler.
func NewNoteHandler(svc service.NoteService) *NoteHandler {
	return &NoteHandler{svc: svc}
}

// NoteRequest is the body of POST /notes.
type NoteRequest struct {
	Identifier string `json:"identifier" validate:"required,max=255"`
	Note       string `json:"note"`
	Author     string `json:"author"`
}

// NoteUpdateRequest is the body of PUT /notes/{id}. Identifier is accepted
// for compatibility but never changes.
type NoteUpdateRequest struct {
	Identifier string `json:"identifier,omitempty"`
	Note       string `json:"note"`
	Author     string `json:"author"`
}

func (r NoteRequest) input() service.NoteInput {
	return service.NoteInput{Identifier: r.Identifier, Note: r.Note, Author: r.Author}
}

func parseNoteID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, badRequest("invalid note id")
	}
	return uint(id), nil
}

// CreateOrUpdate godoc
// @Summary Create a note or update the one with the same identifier
// @Tags notes
// @Accept json
// @Produce json
// @Param request body NoteRequest true "Note"
// @Success 200 {object} model.Note
// @Failure 400 {object} errors.ErrorResponse
// @Failure 422 {object} errors.ErrorResponse
// @Router /notes [post]
func (h *NoteHandler) CreateOrUpdate(c echo.Context) error {
	var req NoteRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(invalidBody)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	note, _, err := h.svc.Save(c.Request().Context(), req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, note)
}

// List godoc
// @Summary List notes, one page at a time
// @Tags notes
// @Produce json
// @Param page query int false "Page number (from 1)" default(1)
// @Param per_page query int false "Page size (max 100, -1 for all)" default(20)
// @Param search query string false "Case-insensitive match on identifier, author or note"
// @Success 200 {object} model.NotePage
// @Failure 422 {object} errors.ErrorResponse
// @Router /notes [get]
func (h *NoteHandler) List(c echo.Context) error {
	page, perPage := service.DefaultPage, service.DefaultPerPage
	var search string
	err := echo.QueryParamsBinder(c).
		Int("page", &page).
		Int("per_page", &perPage).
		String("search", &search).
		BindError()
	if err != nil {
		return fmt.Errorf("%w: page and per_page must be integers", apperrors.ErrValidation)
	}

	result, err := h.svc.Paginate(c.Request().Context(), page, perPage, search)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// ListAll godoc
// @Summary List every note matching search
// @Tags notes
// @Produce json
// @Param search query string false "Case-insensitive match on identifier, author or note"
// @Success 200 {array} model.Note
// @Router /notes/all [get]
func (h *NoteHandler) ListAll(c echo.Context) error {
	notes, err := h.svc.List(c.Request().Context(), c.QueryParam("search"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, notes)
}

// Get godoc
// @Summary Get a note by identifier
// @Tags notes
// @Produce json
// @Param identifier path string true "Note identifier"
// @Success 200 {object} model.Note
// @Failure 404 {object} errors.ErrorResponse
// @Router /notes/{identifier} [get]
func (h *NoteHandler) Get(c echo.Context) error {
	note, err := h.svc.Get(c.Request().Context(), c.Param("identifier"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, note)
}

// Update godoc
// @Summary Update note text and author by id
// @Tags notes
// @Accept json
// @Produce json
// @Param id path int true "Note ID"
// @Param request body NoteUpdateRequest true "Note"
// @Success 200 {object} model.Note
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /notes/{id} [put]
func (h *NoteHandler) Update(c echo.Context) error {
	id, err := parseNoteID(c)
	if err != nil {
		return err
	}
	var req NoteUpdateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(invalidBody)
	}

	note, err := h.svc.Update(c.Request().Context(), id, req.Note, req.Author)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, note)
}

// Delete godoc
// @Summary Delete a note by id
// @Tags notes
// @Param id path int true "Note ID"
// @Success 204
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /notes/{id} [delete]
func (h *NoteHandler) Delete(c echo.Context) error {
	id, err := parseNoteID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// DeleteByIdentifier godoc
// @Summary Delete a note by identifier
// @Tags notes
// @Param identifier path string true "Note identifier"
// @Success 204
// @Failure 404 {object} errors.ErrorResponse
// @Router /notes/identifier/{identifier} [delete]
func (h *NoteHandler) DeleteByIdentifier(c echo.Context) error {
	if err := h.svc.DeleteByIdentifier(c.Request().Context(), c.Param("identifier")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ImportResponse represents the import response.
type ImportResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
	service.ImportResult
}

// Import godoc
// @Summary Upsert a batch of notes
// @Tags notes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body []NoteRequest true "Notes"
// @Success 200 {object} ImportResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 422 {object} errors.ErrorResponse
// @Router /notes/import [post]
func (h *NoteHandler) Import(c echo.Context) error {
	var items []NoteRequest
	if err := new(echo.DefaultBinder).BindBody(c, &items); err != nil {
		return badRequest(invalidBody)
	}

	inputs := make([]service.NoteInput, 0, len(items))
	for i := range items {
		if err := c.Validate(&items[i]); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
		inputs = append(inputs, items[i].input())
	}

	result, err := h.svc.Import(c.Request().Context(), inputs)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ImportResponse{
		Message:      "Notes imported successfully",
		Count:        result.Total(),
		ImportResult: result,
	})
}

package book

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/OleksiukStepan/library-service-api/app/echoServer/jwtx"
	"github.com/OleksiukStepan/library-service-api/model"
	booksvc "github.com/OleksiukStepan/library-service-api/service/book"
)

type Controller struct {
	Svc booksvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

// POST /api/books  (staff)
func (h *Controller) Create(c echo.Context) error {
	if !jwtx.Principal(c).IsStaff {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	b, ok := h.bindBook(c)
	if !ok {
		return nil
	}
	if err := h.Svc.Create(c.Request().Context(), b); err != nil {
		return h.mapErr(c, err, "book create")
	}
	return c.JSON(http.StatusCreated, b)
}

// PUT /api/books/:id  (staff)
func (h *Controller) Update(c echo.Context) error {
	if !jwtx.Principal(c).IsStaff {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	b, ok := h.bindBook(c)
	if !ok {
		return nil
	}
	b.ID = id
	if err := h.Svc.Update(c.Request().Context(), b); err != nil {
		return h.mapErr(c, err, "book update")
	}
	return c.JSON(http.StatusOK, b)
}

// DELETE /api/books/:id  (staff)
func (h *Controller) Delete(c echo.Context) error {
	if !jwtx.Principal(c).IsStaff {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	if err := h.Svc.Delete(c.Request().Context(), id); err != nil {
		return h.mapErr(c, err, "book delete")
	}
	return c.NoContent(http.StatusNoContent)
}

// GET /api/books?title=&author=&ordering=title,-author
func (h *Controller) List(c echo.Context) error {
	rows, err := h.Svc.List(c.Request().Context(), booksvc.ListQuery{
		Title:    c.QueryParam("title"),
		Author:   c.QueryParam("author"),
		Ordering: c.QueryParam("ordering"),
	})
	if err != nil {
		if errors.Is(err, booksvc.ErrBadOrdering) {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "unknown ordering field"})
		}
		h.Log.Error("book list", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /api/books/:id
func (h *Controller) Detail(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	row, err := h.Svc.Detail(c.Request().Context(), id)
	if err != nil {
		return h.mapErr(c, err, "book detail")
	}
	return c.JSON(http.StatusOK, row)
}

func (h *Controller) bindBook(c echo.Context) (*model.Book, bool) {
	var req BookReq
	if err := c.Bind(&req); err != nil {
		_ = c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid json"})
		return nil, false
	}
	if err := h.V.Struct(req); err != nil {
		_ = c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
		return nil, false
	}
	fee, err := decimal.NewFromString(req.DailyFee)
	if err != nil || !fee.IsPositive() {
		_ = c.JSON(http.StatusBadRequest, echo.Map{"message": "daily_fee must be a positive decimal"})
		return nil, false
	}
	return &model.Book{
		Title:     req.Title,
		Author:    req.Author,
		Cover:     model.CoverType(req.Cover),
		Inventory: req.Inventory,
		DailyFee:  fee,
		ImageURL:  req.ImageURL,
	}, true
}

func (h *Controller) mapErr(c echo.Context, err error, op string) error {
	switch {
	case errors.Is(err, booksvc.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"message": "not found"})
	case errors.Is(err, booksvc.ErrBadPayload):
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid payload"})
	default:
		h.Log.Error(op, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
}

package borrowing

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/OleksiukStepan/library-service-api/app/echoServer/jwtx"
	"github.com/OleksiukStepan/library-service-api/model"
	bs "github.com/OleksiukStepan/library-service-api/service/borrowing"
)

type Controller struct {
	Svc bs.Service
	V   *validator.Validate
	Log *slog.Logger
}

// POST /api/borrowings
func (h *Controller) Create(c echo.Context) error {
	var req CreateBorrowingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "validation error",
			"errors":  err.Error(),
		})
	}

	borrowDate, _ := time.Parse(model.DateLayout, req.BorrowDate)
	expectedReturn, _ := time.Parse(model.DateLayout, req.ExpectedReturnDate)

	b, payment, err := h.Svc.Create(c.Request().Context(), jwtx.Principal(c), bs.CreateReq{
		BookID:             req.BookID,
		BorrowDate:         borrowDate,
		ExpectedReturnDate: expectedReturn,
	})
	if err != nil {
		h.Log.Error("borrowing create", "err", err)
		switch bs.Code(err) {
		case bs.ErrBookNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "book not found"})
		case bs.ErrOutOfStock:
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "this book is currently out of stock"})
		case bs.ErrPendingPayments:
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "you cannot borrow a new book until pending payments are resolved"})
		case bs.ErrPastBorrowDate:
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "borrowing cannot be created for past dates"})
		case bs.ErrReturnBeforeBorrow:
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "expected return date cannot be earlier than borrow date"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}

	resp := echo.Map{
		"id":                   b.ID,
		"borrow_date":          b.BorrowDate.Format(model.DateLayout),
		"expected_return_date": b.ExpectedReturnDate.Format(model.DateLayout),
		"book_id":              b.BookID,
	}
	if payment != nil {
		resp["payment_id"] = payment.ID
		resp["session_url"] = payment.SessionURL
		resp["money_to_pay"] = payment.MoneyToPay
	}
	return c.JSON(http.StatusCreated, resp)
}

// POST /api/borrowings/:id/return
func (h *Controller) Return(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}

	b, payment, err := h.Svc.Return(c.Request().Context(), jwtx.Principal(c), id)
	if err != nil {
		h.Log.Error("borrowing return", "err", err)
		switch bs.Code(err) {
		case bs.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "borrowing not found"})
		case bs.ErrAlreadyReturned:
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "this book has already been returned"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}

	resp := echo.Map{
		"message":            "the book was successfully returned",
		"actual_return_date": b.ActualReturnDate.Format(model.DateLayout),
	}
	if payment != nil {
		resp["fine_payment_id"] = payment.ID
		resp["session_url"] = payment.SessionURL
		resp["money_to_pay"] = payment.MoneyToPay
	}
	return c.JSON(http.StatusOK, resp)
}

// GET /api/borrowings?is_active=&user_id=
func (h *Controller) List(c echo.Context) error {
	var f bs.Filter
	if raw := c.QueryParam("is_active"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid is_active"})
		}
		f.IsActive = &v
	}
	if raw := c.QueryParam("user_id"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid user_id"})
		}
		f.UserID = &v
	}

	rows, err := h.Svc.List(c.Request().Context(), jwtx.Principal(c), f)
	if err != nil {
		h.Log.Error("borrowing list", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}

	out := make([]ListView, 0, len(rows))
	for _, r := range rows {
		out = append(out, toListView(r))
	}
	return c.JSON(http.StatusOK, echo.Map{"data": out})
}

// GET /api/borrowings/:id
func (h *Controller) Detail(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}

	d, err := h.Svc.Get(c.Request().Context(), jwtx.Principal(c), id)
	if err != nil {
		if bs.Code(err) == bs.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "borrowing not found"})
		}
		h.Log.Error("borrowing detail", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, toDetailView(d))
}

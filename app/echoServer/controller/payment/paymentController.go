package payment

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/OleksiukStepan/library-service-api/app/echoServer/jwtx"
	"github.com/OleksiukStepan/library-service-api/model"
	ps "github.com/OleksiukStepan/library-service-api/service/payment"
)

type Controller struct {
	Svc ps.Service
	Log *slog.Logger
}

// UserView hides provider internals from regular users.
type UserView struct {
	ID         int64           `json:"id"`
	Status     string          `json:"status"`
	Type       string          `json:"type"`
	MoneyToPay decimal.Decimal `json:"money_to_pay"`
	SessionURL string          `json:"session_url"`
}

// StaffView additionally exposes the borrowing link and the raw session id.
type StaffView struct {
	UserView
	BorrowingID int64  `json:"borrowing_id"`
	SessionID   string `json:"session_id"`
}

func toView(p model.Payment, staff bool) any {
	uv := UserView{
		ID:         p.ID,
		Status:     string(p.Status),
		Type:       string(p.Type),
		MoneyToPay: p.MoneyToPay,
		SessionURL: p.SessionURL,
	}
	if !staff {
		return uv
	}
	return StaffView{UserView: uv, BorrowingID: p.BorrowingID, SessionID: p.SessionID}
}

// GET /api/payments
func (h *Controller) List(c echo.Context) error {
	p := jwtx.Principal(c)
	rows, err := h.Svc.List(c.Request().Context(), p)
	if err != nil {
		h.Log.Error("payment list", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}

	out := make([]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, toView(row, p.IsStaff))
	}
	return c.JSON(http.StatusOK, echo.Map{"data": out})
}

// GET /api/payments/:id
func (h *Controller) Detail(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}

	p := jwtx.Principal(c)
	row, err := h.Svc.Get(c.Request().Context(), p, id)
	if err != nil {
		if ps.Code(err) == ps.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "payment not found"})
		}
		h.Log.Error("payment detail", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, toView(*row, p.IsStaff))
}

// POST /api/payments/:id/renew
func (h *Controller) Renew(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}

	p := jwtx.Principal(c)
	row, err := h.Svc.Renew(c.Request().Context(), p, id)
	if err != nil {
		h.Log.Error("payment renew", "err", err)
		switch ps.Code(err) {
		case ps.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "payment not found"})
		case ps.ErrNotExpired:
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "only expired payments can be renewed"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusOK, toView(*row, p.IsStaff))
}

// GET /api/payments/success?session_id=...
func (h *Controller) Success(c echo.Context) error {
	sessionID := c.QueryParam("session_id")
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "session_id is required"})
	}

	_, err := h.Svc.Confirm(c.Request().Context(), sessionID)
	if err != nil {
		switch ps.Code(err) {
		case ps.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "payment not found"})
		case ps.ErrNotCompleted:
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "payment not completed"})
		default:
			h.Log.Error("payment confirm", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "payment successful"})
}

// GET /api/payments/cancel
func (h *Controller) Cancel(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"message": "payment was cancelled, you can try again within 24 hours",
	})
}

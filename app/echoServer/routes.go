package echoServer

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/OleksiukStepan/library-service-api/app/echoServer/controller/book"
	"github.com/OleksiukStepan/library-service-api/app/echoServer/controller/borrowing"
	"github.com/OleksiukStepan/library-service-api/app/echoServer/controller/payment"
	"github.com/OleksiukStepan/library-service-api/app/echoServer/controller/user"
)

type C struct {
	User      *user.Controller
	Book      *book.Controller
	Borrowing *borrowing.Controller
	Payment   *payment.Controller
	JWTSecret string
}

func Register(e *echo.Echo, c C) {
	// Public
	pub := e.Group("/api")
	pub.POST("/users", c.User.Register)
	pub.POST("/users/login", c.User.Login)

	// catalog reads are open
	pub.GET("/books", c.Book.List)
	pub.GET("/books/:id", c.Book.Detail)

	// Stripe redirect targets carry no auth header
	pub.GET("/payments/success", c.Payment.Success)
	pub.GET("/payments/cancel", c.Payment.Cancel)

	// Auth
	auth := e.Group("/api")
	auth.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(c.JWTSecret),

		NewClaimsFunc: func(c echo.Context) jwt.Claims { return jwt.MapClaims{} },
		TokenLookup:   "header:Authorization",
	}))
	// JWT claim extraction: user_id + is_staff
	auth.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			tokenObj := ctx.Get("user")
			if tokenObj == nil {
				return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
			}

			tok, ok := tokenObj.(*jwt.Token)
			if !ok {
				return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
			}
			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
			}

			sub, ok := claims["sub"].(float64)
			if !ok {
				return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
			}
			staff, _ := claims["staff"].(bool)

			ctx.Set("user_id", int64(sub))
			ctx.Set("is_staff", staff)
			return next(ctx)
		}
	})

	// Account
	auth.GET("/users/me", c.User.Me)
	auth.PUT("/users/me", c.User.UpdateMe)

	// Books (staff)
	auth.POST("/books", c.Book.Create)
	auth.PUT("/books/:id", c.Book.Update)
	auth.DELETE("/books/:id", c.Book.Delete)

	// Borrowings
	auth.GET("/borrowings", c.Borrowing.List)
	auth.GET("/borrowings/:id", c.Borrowing.Detail)
	auth.POST("/borrowings", c.Borrowing.Create)
	auth.POST("/borrowings/:id/return", c.Borrowing.Return)

	// Payments
	auth.GET("/payments", c.Payment.List)
	auth.GET("/payments/:id", c.Payment.Detail)
	auth.POST("/payments/:id/renew", c.Payment.Renew)
}

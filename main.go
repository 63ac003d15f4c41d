// Package main library service API.
//
// @title           Library Service API
// @version         1.0
// @description     Library rental service (books, borrowings, payments, users).
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description  Use:  Bearer <JWT>
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/OleksiukStepan/library-service-api/app/echoServer"
	bookctrl "github.com/OleksiukStepan/library-service-api/app/echoServer/controller/book"
	borrowingctrl "github.com/OleksiukStepan/library-service-api/app/echoServer/controller/borrowing"
	paymentctrl "github.com/OleksiukStepan/library-service-api/app/echoServer/controller/payment"
	userctrl "github.com/OleksiukStepan/library-service-api/app/echoServer/controller/user"
	"github.com/OleksiukStepan/library-service-api/app/echoServer/validation"
	"github.com/OleksiukStepan/library-service-api/app/telegramBot"
	"github.com/OleksiukStepan/library-service-api/config"
	bookrepo "github.com/OleksiukStepan/library-service-api/repository/book"
	borrowingrepo "github.com/OleksiukStepan/library-service-api/repository/borrowing"
	paymentrepo "github.com/OleksiukStepan/library-service-api/repository/payment"
	striperepo "github.com/OleksiukStepan/library-service-api/repository/stripe"
	telegramrepo "github.com/OleksiukStepan/library-service-api/repository/telegram"
	userrepo "github.com/OleksiukStepan/library-service-api/repository/user"
	authsvc "github.com/OleksiukStepan/library-service-api/service/auth"
	booksvc "github.com/OleksiukStepan/library-service-api/service/book"
	borrowingsvc "github.com/OleksiukStepan/library-service-api/service/borrowing"
	notificationsvc "github.com/OleksiukStepan/library-service-api/service/notification"
	paymentsvc "github.com/OleksiukStepan/library-service-api/service/payment"
	sweepsvc "github.com/OleksiukStepan/library-service-api/service/sweep"
	"github.com/OleksiukStepan/library-service-api/util/database"
)

func main() {

	cfg := config.Load()
	ctx := context.Background()

	// logger
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// DB
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		log.Error("migrations failed", "err", err)
		os.Exit(1)
	}

	// repos
	ur := userrepo.New(db)
	br := bookrepo.New(db)
	bor := borrowingrepo.New(db)
	pr := paymentrepo.New(db)
	sr := striperepo.NewHTTP(cfg.StripeAPIKey)
	tr := telegramrepo.NewHTTP(cfg.TelegramBotToken)

	// services
	ns := notificationsvc.New(ur, tr, log)
	ps := paymentsvc.New(pr, sr, ns, cfg.StripeSuccessURL, cfg.StripeCancelURL, log)
	bs := borrowingsvc.New(db, bor, br, ur, ps, ns, log)
	bks := booksvc.New(br)
	as := authsvc.New(ur, cfg.JWTSecret)
	sw := sweepsvc.New(bor, ps, ns, cfg.SessionSweepInterval, cfg.OverdueScanInterval, log)

	// controllers
	v := validator.New()
	userC := &userctrl.Controller{Svc: as, V: v, Log: log}
	bookC := &bookctrl.Controller{Svc: bks, V: v, Log: log}
	borrowingC := &borrowingctrl.Controller{Svc: bs, V: v, Log: log}
	paymentC := &paymentctrl.Controller{Svc: ps, Log: log}

	// echo
	e := echo.New()
	echoServer.RegisterMiddlewares(e)
	e.Validator = validation.New(v)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]any{
			"status":  "ok",
			"message": "Service is healthy and connected",
		})
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	echoServer.Register(e, echoServer.C{
		User:      userC,
		Book:      bookC,
		Borrowing: borrowingC,
		Payment:   paymentC,

		JWTSecret: cfg.JWTSecret,
	})

	// background workers
	go sw.Start(ctx)
	if cfg.TelegramBotToken != "" {
		bot := telegramBot.New(tr, as, log)
		go bot.Run(ctx)
	} else {
		log.Warn("TELEGRAM_BOT_TOKEN not set, bot disabled")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}

	log.Info("starting server", "port", port, "env", cfg.Env)

	e.Logger.Fatal(e.Start(":" + port))
}

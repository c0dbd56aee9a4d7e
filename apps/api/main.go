package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	echoapi "github.com/roadmasterhq/roadmaster/apps/api/echo"
	"github.com/roadmasterhq/roadmaster/core"
	"github.com/roadmasterhq/roadmaster/core/ledger"
	"github.com/roadmasterhq/roadmaster/core/quiz"
	"github.com/roadmasterhq/roadmaster/core/student"
	"github.com/roadmasterhq/roadmaster/core/user"
	dummymail "github.com/roadmasterhq/roadmaster/services/email/dummy"
	sendgridmail "github.com/roadmasterhq/roadmaster/services/email/sendgrid"
	logsvc "github.com/roadmasterhq/roadmaster/services/logger"
	stripesvc "github.com/roadmasterhq/roadmaster/services/stripe"
	"github.com/roadmasterhq/roadmaster/storage/database"
	sqlxrepos "github.com/roadmasterhq/roadmaster/storage/database/sqlx"
)

func main() {
	conf := core.Conf

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = dummymail.NewService(conf.AppName, conf.DefaultFromEmailAddr)
	} else {
		mailSvc = sendgridmail.NewService(conf.SendgridApiKey, conf.AppName, conf.DefaultFromEmailAddr, logger)
	}

	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), mailSvc)
	stdSvc := student.NewService(sqlxrepos.NewStudentRepository(db))
	ldgSvc := ledger.NewService(sqlxrepos.NewLedgerRepository(db), stripesvc.NewProvider(conf.Stripe), mailSvc)

	quizRepo := sqlxrepos.NewQuizRepository(db)
	bank, err := quiz.LoadBank(context.Background(), quizRepo)
	if err != nil {
		logger.Fatal(fmt.Sprintf("loading question bank: %v", err), err)
	}
	quizSvc := quiz.NewService(bank, quizRepo)

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	// start API server
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	server := echoapi.NewServer(&echoapi.Options{
		Address:       conf.Server.Address(),
		Logger:        logger,
		UserSvc:       usrSvc,
		StudentSvc:    stdSvc,
		LedgerSvc:     ldgSvc,
		QuizSvc:       quizSvc,
		WebhookSecret: conf.Stripe.WebhookSecret,
		Shutdown:      func() { shutdownCh <- syscall.SIGTERM },
	})

	go server.Start()

	sig := <-shutdownCh
	logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

	// give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()

	if err = server.Stop(ctx); err != nil {
		logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
	}
}

func setUpDB(conf *core.Config) (*sql.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

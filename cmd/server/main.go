package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"roster-lab/contract"
	"roster-lab/infrastructure/httpapi"
	"roster-lab/infrastructure/notify"
	"roster-lab/internal"
	"roster-lab/repositories"
	"roster-lab/runtime/workers"
	"roster-lab/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting so every defer executes before exit.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Notification delivery: RabbitMQ when configured, log otherwise
	var notifier contract.Notifier
	if config.AmqpURL != nil {
		amqpNotifier, err := notify.NewAMQPNotifier(*config.AmqpURL)
		if err != nil {
			return fmt.Errorf("notifier setup failed: %w", err)
		}
		defer amqpNotifier.Close()
		notifier = amqpNotifier
	} else {
		notifier = notify.NewLogNotifier(log)
	}

	// 4. Repositories & Services
	clock := contract.SystemClock()
	locks := services.NewSessionLocks()

	sessionRepo := repositories.NewSessionRepository(db, log)
	enrollmentRepo := repositories.NewEnrollmentRepository(db)
	waitlistRepo := repositories.NewWaitlistRepository(db)
	inviteRepo := repositories.NewInviteRepository(db)
	accountRepo := repositories.NewAutoSignupRepository(db)
	tenantRepo := repositories.NewTenantRepository(db)
	userRepo := repositories.NewUserRepository(db)

	offers := services.NewOfferService(sessionRepo, enrollmentRepo, waitlistRepo, notifier, clock, locks, log)
	enrollment := services.NewEnrollmentService(sessionRepo, enrollmentRepo, waitlistRepo, userRepo, offers, notifier, clock, locks, log)
	autosignup := services.NewAutoSignupService(sessionRepo, enrollmentRepo, accountRepo, userRepo, notifier, clock, locks, log)
	sessions := services.NewSessionService(sessionRepo, enrollmentRepo, waitlistRepo, inviteRepo, accountRepo, tenantRepo, userRepo, autosignup, notifier, clock, locks, log)
	payments := services.NewPaymentService(sessionRepo, enrollmentRepo, waitlistRepo, tenantRepo, offers, notifier, clock, locks, log)
	invites := services.NewInviteService(sessionRepo, enrollmentRepo, waitlistRepo, inviteRepo, tenantRepo, userRepo, enrollment, offers, notifier, clock, locks, log)

	// 5. Background sweeps under supervision
	sup := workers.NewSupervisor(log)
	sup.Add(
		workers.NewSweepWorker(log, "offers", config.OfferSweepInterval, offers.SweepExpiredOffers),
		workers.NewSweepWorker(log, "invites", config.InviteSweepInterval, invites.SweepExpiredInvites),
		workers.NewSweepWorker(log, "payments", config.PaymentSweepInterval, payments.SweepPaymentDeadlines),
		workers.NewSweepWorker(log, "reminders", config.ReminderSweepInterval, sessions.SweepReminders),
		workers.NewTelemetryWorker(log, config.TelemetryInterval),
	)

	// 6. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	supDone := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(supDone)
	}()

	// 7. HTTP server
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := httpapi.NewServer(address, log, sessions, enrollment, offers, payments, autosignup, invites)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errChan <- err
		}
	}()

	// 8. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 9. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown failed", "error", err)
	}
	sup.Stop()
	<-supDone
	log.Info("Program stopped cleanly")

	return nil
}

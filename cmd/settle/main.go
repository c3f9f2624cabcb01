// Command settle is the operator entry point for the settlement batcher:
// it creates, completes or cancels a teacher payment over completed lessons.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"tutoring_platform/internal/app"
	"tutoring_platform/internal/infra/config"
	idb "tutoring_platform/internal/infra/database"
	"tutoring_platform/internal/infra/logger"
)

func main() {
	var (
		create    = flag.Bool("create", false, "create a payment batch (requires -teacher and -lessons)")
		complete  = flag.String("complete", "", "mark the payment with this id as paid")
		cancel    = flag.String("cancel", "", "cancel the payment with this id (requires -reason)")
		teacherID = flag.String("teacher", "", "teacher id for -create")
		lessons   = flag.String("lessons", "", "comma-separated lesson ids for -create")
		notes     = flag.String("notes", "", "free-text notes for -create")
		reason    = flag.String("reason", "", "cancellation reason for -cancel")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("FATAL: Could not load application configuration: %v", err)
	}
	logger.Init(cfg)
	log := logger.Get().WithField("component", "settle")

	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("Could not connect to database")
	}
	defer db.Close()

	paymentService := app.NewPaymentService(
		idb.NewPostgresPaymentRepository(db),
		idb.NewPostgresLessonRepository(db),
		idb.NewPostgresDirectoryRepository(db),
		cfg.CommissionPercentage,
		log,
	)

	ctx := context.Background()
	switch {
	case *create:
		runCreate(ctx, paymentService, *teacherID, *lessons, *notes)
	case *complete != "":
		p, err := paymentService.CompletePayment(ctx, mustParseID(*complete))
		if err != nil {
			log.WithError(err).Fatal("Could not complete payment")
		}
		fmt.Printf("Payment %s marked paid at %s\n", p.ID, p.PaidAt.Time.Format("2006-01-02 15:04:05"))
	case *cancel != "":
		if *reason == "" {
			log.Fatal("-cancel requires -reason")
		}
		p, err := paymentService.CancelPayment(ctx, mustParseID(*cancel), *reason)
		if err != nil {
			log.WithError(err).Fatal("Could not cancel payment")
		}
		fmt.Printf("Payment %s cancelled\n", p.ID)
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func runCreate(ctx context.Context, paymentService *app.PaymentService, teacherID, lessons, notes string) {
	log := logger.Get().WithField("component", "settle")
	if teacherID == "" || lessons == "" {
		log.Fatal("-create requires -teacher and -lessons")
	}

	lessonIDs := make([]uuid.UUID, 0)
	for _, raw := range strings.Split(lessons, ",") {
		lessonIDs = append(lessonIDs, mustParseID(strings.TrimSpace(raw)))
	}

	p, err := paymentService.CreatePayment(ctx, mustParseID(teacherID), lessonIDs, notes)
	if err != nil {
		log.WithError(err).Fatal("Could not create payment")
	}
	fmt.Printf("Payment %s created: total %s, commission %s, teacher amount %s over %d lessons\n",
		p.ID, p.TotalLessonAmount.StringFixed(2), p.PlatformCommission.StringFixed(2),
		p.TeacherAmount.StringFixed(2), len(p.LessonIDs))
}

func mustParseID(raw string) uuid.UUID {
	id, err := uuid.Parse(raw)
	if err != nil {
		logger.Get().Fatalf("FATAL: invalid id %q: %v", raw, err)
	}
	return id
}

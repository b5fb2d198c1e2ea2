package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"booking_app_echo/internal/models"
	"booking_app_echo/internal/testutil"
)

type reconcileFixture struct {
	db       *gorm.DB
	store    *PaymentStore
	gateway  *fakeGateway
	notifier *fakeNotifier
	rec      *Reconciler
	event    models.Event
}

func newReconcileFixture(t *testing.T) *reconcileFixture {
	t.Helper()
	db := testutil.NewDB(t)
	store := NewPaymentStore(db)
	gw := newFakeGateway()
	n := &fakeNotifier{}
	return &reconcileFixture{
		db:       db,
		store:    store,
		gateway:  gw,
		notifier: n,
		rec:      NewReconciler(store, gw, n, nil, time.Second),
		event:    testutil.CreateEvent(t, db, "Fête de la Loire"),
	}
}

func TestReconcilePaidGroup(t *testing.T) {
	f := newReconcileFixture(t)
	ctx := context.Background()

	group := testutil.CreateGroup(t, f.db, f.event.ID, "6f1c2a52-4c1e-4a57-9d0e-9d3b6f0b1a11",
		testutil.ReservationSpec{Activity: "Canoë", Amount: "45.00"},
		testutil.ReservationSpec{Activity: "Randonnée", Amount: "30.00"},
	)
	testutil.CreateCheckout(t, f.db, "ck_1", models.TransactionStatusPending, time.Now().UTC(), group...)
	f.gateway.set("ck_1", GatewayStatusPaid, "tx_9")

	res, err := f.rec.Reconcile(ctx, "ck_1")
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Status != GatewayStatusPaid || !res.Updated || res.AlreadyProcessed || res.ReservationsCount != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Notification == nil || !res.Notification.Sent {
		t.Fatalf("expected notification sent, got %+v", res.Notification)
	}

	for _, r := range group {
		got := testutil.Reload(t, f.db, r.ID)
		if got.PaymentStatus != models.PaymentStatusPaid {
			t.Errorf("reservation %s status = %s; want PAID", r.ID, got.PaymentStatus)
		}
		if got.PaidAt == nil {
			t.Errorf("reservation %s paidAt not set", r.ID)
		}
		if got.GatewayTransactionID == nil || *got.GatewayTransactionID != "tx_9" {
			t.Errorf("reservation %s transaction id = %v; want tx_9", r.ID, got.GatewayTransactionID)
		}
		if got.GatewayCheckoutID == nil || *got.GatewayCheckoutID != "ck_1" {
			t.Errorf("reservation %s checkout id = %v; want ck_1", r.ID, got.GatewayCheckoutID)
		}
	}
	for _, tx := range testutil.Transactions(t, f.db, "ck_1") {
		if tx.Status != models.TransactionStatusCompleted || tx.CompletedAt == nil {
			t.Errorf("transaction %s = %s (completedAt %v); want COMPLETED", tx.ID, tx.Status, tx.CompletedAt)
		}
	}

	if f.notifier.count() != 1 {
		t.Fatalf("notifications = %d; want 1", f.notifier.count())
	}
	sent := f.notifier.sent[0]
	if !sent.Total.Equal(decimal.RequireFromString("75.00")) {
		t.Errorf("notified total = %s; want 75.00", sent.Total)
	}
	if len(sent.Lines) != 2 || sent.EventName != "Fête de la Loire" || sent.Email != "marie@example.com" {
		t.Errorf("unexpected confirmation %+v", sent)
	}

	paidAt := *testutil.Reload(t, f.db, group[0].ID).PaidAt
	calls := f.gateway.callCount()

	again, err := f.rec.Reconcile(ctx, "ck_1")
	if err != nil {
		t.Fatalf("second Reconcile: %v", err)
	}
	if !again.AlreadyProcessed || again.Status != GatewayStatusPaid || again.Updated {
		t.Errorf("second result = %+v; want alreadyProcessed", again)
	}
	if f.gateway.callCount() != calls {
		t.Error("gateway was called for an already processed checkout")
	}
	if f.notifier.count() != 1 {
		t.Errorf("notifications = %d after replay; want 1", f.notifier.count())
	}
	if got := testutil.Reload(t, f.db, group[0].ID).PaidAt; !got.Equal(paidAt) {
		t.Errorf("paidAt changed from %v to %v", paidAt, got)
	}
}

func TestReconcileExpired(t *testing.T) {
	f := newReconcileFixture(t)

	group := testutil.CreateGroup(t, f.db, f.event.ID, "",
		testutil.ReservationSpec{Activity: "Canoë", Amount: "45.00"},
	)
	testutil.CreateCheckout(t, f.db, "ck_exp", models.TransactionStatusInitiated, time.Now().UTC(), group...)
	f.gateway.set("ck_exp", GatewayStatusExpired, "")

	res, err := f.rec.Reconcile(context.Background(), "ck_exp")
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Status != GatewayStatusExpired || res.Updated {
		t.Errorf("unexpected result %+v", res)
	}

	rows := testutil.Transactions(t, f.db, "ck_exp")
	if len(rows) != 1 || rows[0].Status != models.TransactionStatusExpired || rows[0].ExpiredAt == nil {
		t.Fatalf("transactions = %+v; want one EXPIRED row with expiredAt", rows)
	}
	if got := testutil.Reload(t, f.db, group[0].ID); got.PaymentStatus != models.PaymentStatusPending || got.PaidAt != nil {
		t.Errorf("reservation = %s; want untouched PENDING", got.PaymentStatus)
	}
	if f.notifier.count() != 0 {
		t.Error("no notification expected for an expired checkout")
	}
}

func TestReconcileStillPending(t *testing.T) {
	f := newReconcileFixture(t)

	group := testutil.CreateGroup(t, f.db, f.event.ID, "",
		testutil.ReservationSpec{Activity: "Canoë", Amount: "45.00"},
	)
	testutil.CreateCheckout(t, f.db, "ck_p", models.TransactionStatusInitiated, time.Now().UTC(), group...)

	res, err := f.rec.Reconcile(context.Background(), "ck_p")
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Status != GatewayStatusPending || res.Updated {
		t.Errorf("unexpected result %+v", res)
	}
	if rows := testutil.Transactions(t, f.db, "ck_p"); rows[0].Status != models.TransactionStatusInitiated {
		t.Errorf("transaction status = %s; want untouched INITIATED", rows[0].Status)
	}
}

func TestReconcileUnknownCheckout(t *testing.T) {
	f := newReconcileFixture(t)

	_, err := f.rec.Reconcile(context.Background(), "nope")
	if !errors.Is(err, ErrUnknownCheckout) {
		t.Fatalf("err = %v; want ErrUnknownCheckout", err)
	}
	if f.gateway.callCount() != 0 {
		t.Error("gateway must not be called for an unknown checkout")
	}
}

func TestReconcileGatewayErrorWritesNothing(t *testing.T) {
	f := newReconcileFixture(t)

	group := testutil.CreateGroup(t, f.db, f.event.ID, "",
		testutil.ReservationSpec{Activity: "Canoë", Amount: "45.00"},
	)
	testutil.CreateCheckout(t, f.db, "ck_err", models.TransactionStatusPending, time.Now().UTC(), group...)
	f.gateway.err = errGatewayDown

	_, err := f.rec.Reconcile(context.Background(), "ck_err")
	if !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("err = %v; want ErrGatewayUnavailable", err)
	}
	if got := testutil.Reload(t, f.db, group[0].ID); got.PaymentStatus != models.PaymentStatusPending {
		t.Errorf("reservation = %s; want PENDING", got.PaymentStatus)
	}
	if rows := testutil.Transactions(t, f.db, "ck_err"); rows[0].Status != models.TransactionStatusPending {
		t.Errorf("transaction = %s; want PENDING", rows[0].Status)
	}
}

func TestReconcileNoRegression(t *testing.T) {
	f := newReconcileFixture(t)
	ctx := context.Background()

	group := testutil.CreateGroup(t, f.db, f.event.ID, "8c0d8d4e-3f55-4a1b-8f3e-1f5a0c2b9e22",
		testutil.ReservationSpec{Activity: "Canoë", Amount: "45.00"},
		testutil.ReservationSpec{Activity: "Vélo", Amount: "20.00"},
	)
	testutil.CreateCheckout(t, f.db, "ck_r", models.TransactionStatusPending, time.Now().UTC(), group...)
	f.gateway.set("ck_r", GatewayStatusPaid, "tx_1")
	if _, err := f.rec.Reconcile(ctx, "ck_r"); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	// one reservation is refunded by an operator, so the group is no longer fully PAID
	if err := f.db.Model(&models.Reservation{}).Where("id = ?", group[1].ID).
		Update("payment_status", models.PaymentStatusRefunded).Error; err != nil {
		t.Fatal(err)
	}

	// a replayed FAILED answer must not touch the paid reservation nor the completed ledger
	f.gateway.set("ck_r", GatewayStatusFailed, "")
	res, err := f.rec.Reconcile(ctx, "ck_r")
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if res.Updated {
		t.Error("replay must not update anything")
	}

	first := testutil.Reload(t, f.db, group[0].ID)
	if first.PaymentStatus != models.PaymentStatusPaid || first.GatewayTransactionID == nil || *first.GatewayTransactionID != "tx_1" {
		t.Errorf("paid reservation regressed: %s %v", first.PaymentStatus, first.GatewayTransactionID)
	}
	if second := testutil.Reload(t, f.db, group[1].ID); second.PaymentStatus != models.PaymentStatusRefunded {
		t.Errorf("refunded reservation = %s; want REFUNDED", second.PaymentStatus)
	}
	for _, tx := range testutil.Transactions(t, f.db, "ck_r") {
		if tx.Status != models.TransactionStatusCompleted {
			t.Errorf("transaction %s = %s; want COMPLETED", tx.ID, tx.Status)
		}
	}

	// and a later PAID answer cannot resurrect the refunded one
	f.gateway.set("ck_r", GatewayStatusPaid, "tx_2")
	res, err = f.rec.Reconcile(ctx, "ck_r")
	if err != nil {
		t.Fatalf("paid replay: %v", err)
	}
	if res.Updated || f.notifier.count() != 1 {
		t.Errorf("paid replay updated=%v notifications=%d; want false, 1", res.Updated, f.notifier.count())
	}
	if second := testutil.Reload(t, f.db, group[1].ID); second.PaymentStatus != models.PaymentStatusRefunded {
		t.Errorf("refunded reservation = %s; want REFUNDED", second.PaymentStatus)
	}
}

func TestReconcileConcurrentSingleNotification(t *testing.T) {
	f := newReconcileFixture(t)

	group := testutil.CreateGroup(t, f.db, f.event.ID, "1d3b7e8a-5a4c-4e7e-9a61-7b2f1c3d4e55",
		testutil.ReservationSpec{Activity: "Canoë", Amount: "45.00"},
		testutil.ReservationSpec{Activity: "Randonnée", Amount: "30.00"},
		testutil.ReservationSpec{Activity: "Vélo", Amount: "25.50"},
	)
	testutil.CreateCheckout(t, f.db, "ck_c", models.TransactionStatusPending, time.Now().UTC(), group...)
	f.gateway.set("ck_c", GatewayStatusPaid, "tx_c")

	const callers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		updated int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.rec.Reconcile(context.Background(), "ck_c")
			if err != nil {
				t.Errorf("Reconcile: %v", err)
				return
			}
			if res.Status != GatewayStatusPaid {
				t.Errorf("status = %s; want PAID", res.Status)
			}
			if res.Updated {
				mu.Lock()
				updated++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if updated != 1 {
		t.Errorf("%d callers reported an update; want 1", updated)
	}
	if f.notifier.count() != 1 {
		t.Fatalf("notifications = %d; want 1", f.notifier.count())
	}
	sent := f.notifier.sent[0]
	if len(sent.Lines) != 3 || !sent.Total.Equal(decimal.RequireFromString("100.50")) {
		t.Errorf("confirmation lines=%d total=%s; want 3, 100.50", len(sent.Lines), sent.Total)
	}
}

func TestReconcileOrderIndependence(t *testing.T) {
	run := func(t *testing.T, first, second string) {
		f := newReconcileFixture(t)
		svc := NewPaymentService(f.store, f.rec, nil, testConfig())

		group := testutil.CreateGroup(t, f.db, f.event.ID, "2a9e6f3c-7b1d-4c8e-a5f2-3e4d5c6b7a88",
			testutil.ReservationSpec{Activity: "Canoë", Amount: "45.00"},
			testutil.ReservationSpec{Activity: "Randonnée", Amount: "30.00"},
		)
		testutil.CreateCheckout(t, f.db, "ck_o", models.TransactionStatusPending, time.Now().UTC(), group...)
		f.gateway.set("ck_o", GatewayStatusPaid, "tx_o")

		trigger := func(kind string) {
			var err error
			switch kind {
			case "webhook":
				_, err = f.rec.Reconcile(context.Background(), "ck_o")
			case "poll":
				_, err = svc.PollStatus(context.Background(), GroupRef{GroupID: *group[0].GroupID})
			}
			if err != nil {
				t.Fatalf("%s: %v", kind, err)
			}
		}
		trigger(first)
		trigger(second)

		if f.notifier.count() != 1 {
			t.Errorf("notifications = %d; want 1", f.notifier.count())
		}
		for _, r := range group {
			if got := testutil.Reload(t, f.db, r.ID); got.PaymentStatus != models.PaymentStatusPaid {
				t.Errorf("reservation %s = %s; want PAID", r.ID, got.PaymentStatus)
			}
		}
	}

	t.Run("webhook then poll", func(t *testing.T) { run(t, "webhook", "poll") })
	t.Run("poll then webhook", func(t *testing.T) { run(t, "poll", "webhook") })
}

func TestReconcileNotifierFailureIsSwallowed(t *testing.T) {
	f := newReconcileFixture(t)
	f.notifier.err = errors.New("smtp down")

	group := testutil.CreateGroup(t, f.db, f.event.ID, "",
		testutil.ReservationSpec{Activity: "Canoë", Amount: "45.00"},
	)
	testutil.CreateCheckout(t, f.db, "ck_n", models.TransactionStatusPending, time.Now().UTC(), group...)
	f.gateway.set("ck_n", GatewayStatusPaid, "tx_n")

	res, err := f.rec.Reconcile(context.Background(), "ck_n")
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !res.Updated || res.Notification == nil || res.Notification.Sent || res.Notification.Err == nil {
		t.Errorf("unexpected result %+v / %+v", res, res.Notification)
	}
	if got := testutil.Reload(t, f.db, group[0].ID); got.PaymentStatus != models.PaymentStatusPaid {
		t.Errorf("reservation = %s; want PAID despite notifier failure", got.PaymentStatus)
	}
}

func TestConfirmationSkipsCancelledMembers(t *testing.T) {
	f := newReconcileFixture(t)
	ctx := context.Background()

	group := testutil.CreateGroup(t, f.db, f.event.ID, "6f1c2a52-4c1e-4a57-9d0e-9d3b6f0b1a11",
		testutil.ReservationSpec{Activity: "Canoë", Amount: "45.00"},
		testutil.ReservationSpec{Activity: "Randonnée", Amount: "30.00"},
	)
	testutil.CreateCheckout(t, f.db, "ck_mix", models.TransactionStatusPending, time.Now().UTC(), group...)
	if err := f.db.Model(&models.Reservation{}).Where("id = ?", group[1].ID).
		Update("payment_status", models.PaymentStatusCancelled).Error; err != nil {
		t.Fatal(err)
	}
	f.gateway.set("ck_mix", GatewayStatusPaid, "tx_mix")

	res, err := f.rec.Reconcile(ctx, "ck_mix")
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !res.Updated || f.notifier.count() != 1 {
		t.Fatalf("result %+v, notifications %d; want one update and one notification", res, f.notifier.count())
	}
	if got := testutil.Reload(t, f.db, group[1].ID); got.PaymentStatus != models.PaymentStatusCancelled {
		t.Errorf("cancelled member = %s; want CANCELLED", got.PaymentStatus)
	}

	if err := f.rec.ResendConfirmation(ctx, "ck_mix"); err != nil {
		t.Fatalf("ResendConfirmation: %v", err)
	}
	for i, sent := range f.notifier.sent {
		if len(sent.Lines) != 1 || sent.Lines[0].ReservationID != group[0].ID {
			t.Errorf("confirmation %d lines = %+v; want only %s", i, sent.Lines, group[0].ID)
		}
		if !sent.Total.Equal(decimal.RequireFromString("45.00")) {
			t.Errorf("confirmation %d total = %s; want 45.00", i, sent.Total)
		}
	}
}

func TestResendConfirmation(t *testing.T) {
	f := newReconcileFixture(t)
	ctx := context.Background()

	group := testutil.CreateGroup(t, f.db, f.event.ID, "",
		testutil.ReservationSpec{Activity: "Canoë", Amount: "45.00"},
	)
	testutil.CreateCheckout(t, f.db, "ck_s", models.TransactionStatusPending, time.Now().UTC(), group...)

	if err := f.rec.ResendConfirmation(ctx, "ck_s"); !errors.Is(err, ErrNotPaid) {
		t.Fatalf("resend on an unpaid checkout: err = %v; want ErrNotPaid", err)
	}

	f.gateway.set("ck_s", GatewayStatusPaid, "tx_s")
	if _, err := f.rec.Reconcile(ctx, "ck_s"); err != nil {
		t.Fatal(err)
	}
	if err := f.rec.ResendConfirmation(ctx, "ck_s"); err != nil {
		t.Fatalf("ResendConfirmation: %v", err)
	}
	if f.notifier.count() != 2 {
		t.Fatalf("notifications = %d; want 2", f.notifier.count())
	}
	if f.notifier.sent[1].TransactionID != "tx_s" {
		t.Errorf("resent transaction id = %q; want tx_s", f.notifier.sent[1].TransactionID)
	}
}

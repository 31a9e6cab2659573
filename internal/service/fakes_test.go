package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Shivanand-hulikatti/eventhub/internal/apperr"
	"github.com/Shivanand-hulikatti/eventhub/internal/auth"
	"github.com/Shivanand-hulikatti/eventhub/internal/logging"
	"github.com/Shivanand-hulikatti/eventhub/internal/model"
	"github.com/Shivanand-hulikatti/eventhub/internal/otp"
	"github.com/Shivanand-hulikatti/eventhub/internal/payment"
	"github.com/Shivanand-hulikatti/eventhub/internal/repository"
)

// memDB stands in for PostgreSQL. Every method holds the lock for its whole
// body, which gives the same all-or-nothing behaviour as the transactions in
// the repository package.
type memDB struct {
	mu           sync.Mutex
	events       map[string]*model.Event
	seats        map[[2]string]model.Participation
	payments     map[string]*model.Payment
	participated map[string]int
	markFulls    int
	// beforeUpdate runs under the lock ahead of an event update, to stand
	// in for a writer that got there first.
	beforeUpdate func()
}

func newMemDB() *memDB {
	return &memDB{
		events:       map[string]*model.Event{},
		seats:        map[[2]string]model.Participation{},
		payments:     map[string]*model.Payment{},
		participated: map[string]int{},
	}
}

func (db *memDB) addEvent(ev model.Event) *model.Event {
	db.mu.Lock()
	defer db.mu.Unlock()
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	db.events[ev.ID] = &ev
	cp := ev
	return &cp
}

func (db *memDB) event(id string) model.Event {
	db.mu.Lock()
	defer db.mu.Unlock()
	return *db.events[id]
}

func (db *memDB) payment(id string) model.Payment {
	db.mu.Lock()
	defer db.mu.Unlock()
	return *db.payments[id]
}

func (db *memDB) seatCount(eventID string) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	n := 0
	for k := range db.seats {
		if k[0] == eventID {
			n++
		}
	}
	return n
}

// ── events ──

type memEvents struct{ db *memDB }

func (r memEvents) Create(_ context.Context, ev *model.Event) error {
	ev.ID = uuid.NewString()
	ev.CreatedAt, ev.UpdatedAt = time.Now(), time.Now()
	r.db.addEvent(*ev)
	return nil
}

func (r memEvents) GetByID(_ context.Context, id string) (*model.Event, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	ev, ok := r.db.events[id]
	if !ok {
		return nil, apperr.ErrEventNotFound
	}
	cp := *ev
	return &cp, nil
}

func (r memEvents) List(_ context.Context, q model.EventQuery) ([]model.Event, int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.Event
	for _, ev := range r.db.events {
		if q.Status != "" && ev.Status != q.Status {
			continue
		}
		if q.HostID != "" && ev.HostID != q.HostID {
			continue
		}
		out = append(out, *ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (r memEvents) ListParticipated(_ context.Context, userID string, _ model.Page) ([]model.Event, int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.Event
	for k := range r.db.seats {
		if k[1] == userID {
			out = append(out, *r.db.events[k[0]])
		}
	}
	return out, len(out), nil
}

func (r memEvents) GetParticipated(_ context.Context, userID, eventID string) (*model.Event, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.seats[[2]string{eventID, userID}]; !ok {
		return nil, apperr.ErrNotParticipant
	}
	cp := *r.db.events[eventID]
	return &cp, nil
}

func (r memEvents) UpdateStatus(_ context.Context, id string, from, to model.EventStatus) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	ev, ok := r.db.events[id]
	if !ok || ev.Status != from {
		return false, nil
	}
	ev.Status = to
	return true, nil
}

func (r memEvents) MarkFull(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.markFulls++
	ev, ok := r.db.events[id]
	if ok && ev.CurrentParticipants >= ev.MaxParticipants && ev.Status.Mutable() {
		ev.Status = model.StatusFull
	}
	return nil
}

func (r memEvents) Update(_ context.Context, ev *model.Event, seen model.EventVersion) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.beforeUpdate != nil {
		r.db.beforeUpdate()
	}
	cur, ok := r.db.events[ev.ID]
	if !ok {
		return apperr.ErrEventNotFound
	}
	if cur.CurrentParticipants > ev.MaxParticipants {
		return apperr.ErrCapacityBelowSeats
	}
	if cur.Status != seen.Status || cur.CurrentParticipants != seen.CurrentParticipants {
		return apperr.ErrEventChanged
	}
	cp := *ev
	cp.CurrentParticipants = cur.CurrentParticipants
	r.db.events[ev.ID] = &cp
	return nil
}

func (r memEvents) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.events[id]; !ok {
		return apperr.ErrEventNotFound
	}
	delete(r.db.events, id)
	return nil
}

func (r memEvents) CountByStatus(_ context.Context) (map[model.EventStatus]int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := map[model.EventStatus]int{}
	for _, ev := range r.db.events {
		out[ev.Status]++
	}
	return out, nil
}

// ── ledger ──

type memLedger struct{ db *memDB }

func takeSeat(ev *model.Event) {
	ev.CurrentParticipants++
	if ev.CurrentParticipants >= ev.MaxParticipants {
		ev.Status = model.StatusFull
	}
}

func (l memLedger) EnrollFree(_ context.Context, eventID, userID string) (*model.Event, error) {
	l.db.mu.Lock()
	defer l.db.mu.Unlock()
	ev, ok := l.db.events[eventID]
	if !ok {
		return nil, apperr.ErrEventNotFound
	}
	if !ev.IsFree() || !ev.Status.Joinable() || ev.IsFull() {
		if err := repository.EnrollmentError(ev); err != nil {
			return nil, err
		}
		return nil, apperr.ErrEventNotJoinable
	}
	key := [2]string{eventID, userID}
	if _, dup := l.db.seats[key]; dup {
		return nil, apperr.ErrAlreadyParticipating
	}
	takeSeat(ev)
	l.db.seats[key] = model.Participation{EventID: eventID, UserID: userID, Source: model.SourceFree}
	l.db.participated[userID]++
	cp := *ev
	return &cp, nil
}

func (l memLedger) IsParticipant(_ context.Context, eventID, userID string) (bool, error) {
	l.db.mu.Lock()
	defer l.db.mu.Unlock()
	_, ok := l.db.seats[[2]string{eventID, userID}]
	return ok, nil
}

func (l memLedger) ListByEvent(_ context.Context, eventID string) ([]model.Participation, error) {
	l.db.mu.Lock()
	defer l.db.mu.Unlock()
	var out []model.Participation
	for k, p := range l.db.seats {
		if k[0] == eventID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (l memLedger) CompletePayment(_ context.Context, paymentID string) (*model.Payment, bool, error) {
	l.db.mu.Lock()
	defer l.db.mu.Unlock()
	p, ok := l.db.payments[paymentID]
	if !ok {
		return nil, false, apperr.ErrPaymentNotFound
	}
	switch p.Status {
	case model.PaymentCompleted:
		cp := *p
		return &cp, false, nil
	case model.PaymentPending:
	default:
		return nil, false, apperr.ErrPaymentTerminal
	}
	for _, other := range l.db.payments {
		if other.ID != p.ID && other.UserID == p.UserID && other.EventID == p.EventID && other.Status == model.PaymentCompleted {
			return nil, false, apperr.ErrPaymentCompleted
		}
	}
	ev := l.db.events[p.EventID]
	if ev.IsFull() {
		return nil, false, apperr.ErrEventFull
	}
	key := [2]string{p.EventID, p.UserID}
	if _, dup := l.db.seats[key]; dup {
		return nil, false, apperr.ErrAlreadyParticipating
	}
	p.Status = model.PaymentCompleted
	takeSeat(ev)
	pid := p.ID
	l.db.seats[key] = model.Participation{EventID: p.EventID, UserID: p.UserID, Source: model.SourcePaid, PaymentID: &pid}
	l.db.participated[p.UserID]++
	cp := *p
	return &cp, true, nil
}

func (l memLedger) RefundPayment(_ context.Context, paymentID string) (*model.Payment, *model.Event, error) {
	l.db.mu.Lock()
	defer l.db.mu.Unlock()
	p, ok := l.db.payments[paymentID]
	if !ok {
		return nil, nil, apperr.ErrPaymentNotFound
	}
	if p.Status != model.PaymentCompleted {
		return nil, nil, apperr.ErrPaymentTransition
	}
	p.Status = model.PaymentRefunded
	ev := l.db.events[p.EventID]
	key := [2]string{p.EventID, p.UserID}
	if s, ok := l.db.seats[key]; ok && s.Source == model.SourcePaid {
		delete(l.db.seats, key)
		ev.CurrentParticipants--
		l.db.participated[p.UserID]--
	}
	pc, ec := *p, *ev
	return &pc, &ec, nil
}

// ── payments ──

type memPayments struct{ db *memDB }

func (r memPayments) Create(_ context.Context, p *model.Payment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p.ID = uuid.NewString()
	p.Status = model.PaymentPending
	cp := *p
	r.db.payments[p.ID] = &cp
	return nil
}

func (r memPayments) GetByID(_ context.Context, id string) (*model.Payment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.payments[id]
	if !ok {
		return nil, apperr.ErrPaymentNotFound
	}
	cp := *p
	if ev, ok := r.db.events[p.EventID]; ok {
		cp.Event = &model.EventSummary{ID: ev.ID, Title: ev.Title, HostID: ev.HostID, JoiningFee: ev.JoiningFee}
	}
	return &cp, nil
}

func (r memPayments) GetByProviderReference(_ context.Context, ref string) (*model.Payment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, p := range r.db.payments {
		if ref != "" && p.ProviderReference == ref {
			cp := *p
			return &cp, nil
		}
	}
	return nil, apperr.ErrPaymentNotFound
}

func (r memPayments) SetProviderReference(_ context.Context, id, ref string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.payments[id]
	if !ok {
		return apperr.ErrPaymentNotFound
	}
	p.ProviderReference = ref
	return nil
}

func (r memPayments) MarkFailed(_ context.Context, id string) (*model.Payment, bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.payments[id]
	if !ok {
		return nil, false, apperr.ErrPaymentNotFound
	}
	applied := p.Status == model.PaymentPending
	if applied {
		p.Status = model.PaymentFailed
	}
	cp := *p
	return &cp, applied, nil
}

func (r memPayments) HasCompleted(_ context.Context, userID, eventID string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, p := range r.db.payments {
		if p.UserID == userID && p.EventID == eventID && p.Status == model.PaymentCompleted {
			return true, nil
		}
	}
	return false, nil
}

func (r memPayments) List(_ context.Context, q model.PaymentQuery) ([]model.Payment, int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.Payment
	for _, p := range r.db.payments {
		if q.UserID != "" && p.UserID != q.UserID {
			continue
		}
		if q.HostID != "" && r.db.events[p.EventID].HostID != q.HostID {
			continue
		}
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (r memPayments) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.payments[id]; !ok {
		return apperr.ErrPaymentNotFound
	}
	delete(r.db.payments, id)
	return nil
}

// ── provider ──

type fakeProvider struct {
	mu        sync.Mutex
	createErr error
	getErr    error
	created   []payment.IntentRequest
	intents   map[string]*payment.Intent
	// webhooks maps a payload to the notification it decodes to.
	webhooks map[string]*payment.Notification
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{intents: map[string]*payment.Intent{}, webhooks: map[string]*payment.Notification{}}
}

const goodSignature = "t=1,v1=ok"

func (f *fakeProvider) CreateIntent(_ context.Context, req payment.IntentRequest) (*payment.Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, req)
	if f.createErr != nil {
		return nil, f.createErr
	}
	in := &payment.Intent{
		ID:           "pi_" + req.Metadata[payment.MetaPaymentID],
		ClientSecret: "secret_" + req.Metadata[payment.MetaPaymentID],
		Status:       "requires_payment_method",
		Metadata:     req.Metadata,
	}
	f.intents[in.ID] = in
	return in, nil
}

func (f *fakeProvider) GetIntent(_ context.Context, id string) (*payment.Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	in, ok := f.intents[id]
	if !ok {
		return nil, errors.New("no such payment_intent")
	}
	cp := *in
	return &cp, nil
}

func (f *fakeProvider) ParseWebhook(payload []byte, signature string) (*payment.Notification, error) {
	if signature != goodSignature {
		return nil, payment.ErrInvalidSignature
	}
	n, ok := f.webhooks[string(payload)]
	if !ok {
		return nil, errors.New("unexpected payload")
	}
	return n, nil
}

func (f *fakeProvider) PublishableKey() string { return "pk_test" }

// settle marks the stored intent with outcome and returns a webhook payload
// that reports it.
func (f *fakeProvider) settle(intentID string, outcome payment.Outcome) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	in := f.intents[intentID]
	in.Outcome = outcome
	switch outcome {
	case payment.OutcomeSucceeded:
		in.Status = "succeeded"
	case payment.OutcomeFailed:
		in.Status = "canceled"
	default:
		// a declined attempt; the intent stays open for a retry
		in.Status = "requires_payment_method"
	}
	cp := *in
	payload := "evt_" + uuid.NewString()
	f.webhooks[payload] = &payment.Notification{EventID: payload, Type: "payment_intent." + in.Status, Intent: &cp}
	return []byte(payload)
}

// ── objects ──

type memObjects struct {
	mu      sync.Mutex
	stored  map[string][]byte
	deleted []string
}

func newMemObjects() *memObjects { return &memObjects{stored: map[string][]byte{}} }

func (o *memObjects) Put(_ context.Context, data []byte, name string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	url := "http://files.test/" + uuid.NewString() + "-" + name
	o.stored[url] = data
	return url, nil
}

func (o *memObjects) Delete(_ context.Context, url string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.stored, url)
	o.deleted = append(o.deleted, url)
	return nil
}

// ── accounts ──

type memUsers struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newMemUsers() *memUsers { return &memUsers{users: map[string]*model.User{}} }

func (r *memUsers) Create(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.users {
		if x.Email == u.Email {
			return apperr.ErrUserExists
		}
	}
	u.ID = uuid.NewString()
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memUsers) GetByID(_ context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, apperr.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperr.ErrUserNotFound
}

func (r *memUsers) MarkVerified(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[id].Verified = true
	return nil
}

func (r *memUsers) UpdatePassword(_ context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[id].PasswordHash = hash
	return nil
}

func (r *memUsers) setStatus(id string, st model.UserStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[id].Status = st
}

type memCodes struct {
	mu    sync.Mutex
	codes map[string]string
	next  int
}

func newMemCodes() *memCodes { return &memCodes{codes: map[string]string{}} }

func (c *memCodes) Issue(_ context.Context, p otp.Purpose, email string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next++
	code := fmt.Sprintf("%06d", 100000+c.next)
	c.codes[string(p)+":"+email] = code
	return code, nil
}

func (c *memCodes) Verify(_ context.Context, p otp.Purpose, email, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := string(p) + ":" + email
	staged, ok := c.codes[k]
	if !ok {
		return otp.ErrExpired
	}
	if staged != code {
		return otp.ErrMismatch
	}
	delete(c.codes, k)
	return nil
}

type sentCode struct {
	to, code string
	reset    bool
}

type captureMailer struct {
	mu   sync.Mutex
	sent []sentCode
	err  error
}

func (m *captureMailer) SendVerificationCode(to, _, code string, _ int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentCode{to: to, code: code})
	return m.err
}

func (m *captureMailer) SendPasswordResetCode(to, _, code string, _ int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentCode{to: to, code: code, reset: true})
	return m.err
}

func (m *captureMailer) last() sentCode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

// ── wiring ──

var testNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

type fixture struct {
	db       *memDB
	objects  *memObjects
	provider *fakeProvider
	events   *EventService
	payments *PaymentService
}

func newFixture() *fixture {
	db := newMemDB()
	objects := newMemObjects()
	provider := newFakeProvider()
	log := logging.Discard()

	events := NewEventService(memEvents{db}, memLedger{db}, memPayments{db}, objects, time.UTC, log)
	events.now = func() time.Time { return testNow }
	payments := NewPaymentService(memPayments{db}, memLedger{db}, events, provider, "usd", time.Second, log)
	payments.now = func() time.Time { return testNow }

	return &fixture{db: db, objects: objects, provider: provider, events: events, payments: payments}
}

func user(id string) auth.Identity  { return auth.Identity{UserID: id, Role: model.RoleUser} }
func host(id string) auth.Identity  { return auth.Identity{UserID: id, Role: model.RoleHost} }
func admin(id string) auth.Identity { return auth.Identity{UserID: id, Role: model.RoleAdmin} }

func freeEvent(max int) model.Event {
	return model.Event{
		HostID: "host-1", Title: "Park cleanup", Date: testNow.AddDate(0, 0, 3),
		MinParticipants: 1, MaxParticipants: max, JoiningFee: decimal.Zero, Status: model.StatusOpen,
	}
}

func paidEvent(max int, fee string) model.Event {
	return model.Event{
		HostID: "host-1", Title: "Wine tasting", Date: testNow.AddDate(0, 0, 3),
		MinParticipants: 1, MaxParticipants: max, JoiningFee: decimal.RequireFromString(fee), Status: model.StatusOngoing,
	}
}

package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stayhub/service-rental/internal/adapter"
	"github.com/stayhub/service-rental/internal/common/domain"
	"github.com/stayhub/service-rental/internal/domain/booking"
	"github.com/stayhub/service-rental/internal/domain/property"
	"github.com/stayhub/service-rental/internal/domain/user"
	"github.com/stayhub/service-rental/internal/events"
)

// --- bookings ---

type bookingStore struct {
	mu         sync.Mutex
	txMu       sync.Mutex
	bookings   map[uuid.UUID]*booking.Booking
	properties map[uuid.UUID]bool
	updateErr  error
}

// fakeBookingRepo keeps bookings in memory. Transactions are fully serialized and
// roll back to a snapshot when fn fails.
type fakeBookingRepo struct {
	store *bookingStore
	inTx  bool
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{store: &bookingStore{
		bookings:   make(map[uuid.UUID]*booking.Booking),
		properties: make(map[uuid.UUID]bool),
	}}
}

func cloneBooking(b *booking.Booking) *booking.Booking {
	return booking.Reconstitute(b.ID(), b.PropertyID(), b.UserID(), b.CheckIn(), b.CheckOut(),
		b.GuestCount(), b.SpecialRequests(), b.TotalPrice(), b.Status(), b.PaymentStatus(),
		b.PaymentIntentID(), b.Version(), b.CreatedAt(), b.UpdatedAt())
}

func (r *fakeBookingRepo) put(b *booking.Booking) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.bookings[b.ID()] = cloneBooking(b)
}

func (r *fakeBookingRepo) get(id uuid.UUID) *booking.Booking {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if b, ok := r.store.bookings[id]; ok {
		return cloneBooking(b)
	}
	return nil
}

func (r *fakeBookingRepo) count() int {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return len(r.store.bookings)
}

func (r *fakeBookingRepo) FindByID(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	if b := r.get(id); b != nil {
		return b, nil
	}
	return nil, domain.NewNotFoundError("Booking", id.String())
}

func (r *fakeBookingRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeBookingRepo) FindByPaymentIntentID(ctx context.Context, intentID string) (*booking.Booking, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, b := range r.store.bookings {
		if b.PaymentIntentID() == intentID {
			return cloneBooking(b), nil
		}
	}
	return nil, domain.NewNotFoundError("Booking", intentID)
}

func (r *fakeBookingRepo) all(match func(b *booking.Booking) bool) []*booking.Booking {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*booking.Booking
	for _, b := range r.store.bookings {
		if match(b) {
			out = append(out, cloneBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt().After(out[j].CreatedAt()) })
	return out
}

func (r *fakeBookingRepo) FindByUserID(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]*booking.Booking, int64, error) {
	mine := r.all(func(b *booking.Booking) bool { return b.UserID() == userID })
	start := (page - 1) * pageSize
	if start > len(mine) {
		start = len(mine)
	}
	end := start + pageSize
	if end > len(mine) {
		end = len(mine)
	}
	return mine[start:end], int64(len(mine)), nil
}

func (r *fakeBookingRepo) CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	return int64(len(r.all(func(b *booking.Booking) bool { return b.UserID() == userID }))), nil
}

func (r *fakeBookingRepo) CountActiveByPropertyID(ctx context.Context, propertyID uuid.UUID) (int64, error) {
	return int64(len(r.all(func(b *booking.Booking) bool {
		return b.PropertyID() == propertyID && b.Status() != booking.StatusCancelled
	}))), nil
}

func (r *fakeBookingRepo) CountPendingPaymentByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	return int64(len(r.all(func(b *booking.Booking) bool {
		return b.UserID() == userID && b.PaymentStatus() == booking.PaymentPending && b.Status() != booking.StatusCancelled
	}))), nil
}

func (r *fakeBookingRepo) FindOverlapping(ctx context.Context, propertyID uuid.UUID, checkIn, checkOut time.Time, excludeID *uuid.UUID) ([]*booking.Booking, error) {
	return r.all(func(b *booking.Booking) bool {
		if excludeID != nil && b.ID() == *excludeID {
			return false
		}
		return b.PropertyID() == propertyID && b.IsAdmitted() && b.Overlaps(checkIn, checkOut)
	}), nil
}

func (r *fakeBookingRepo) Save(ctx context.Context, b *booking.Booking) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.bookings {
		if existing.PaymentIntentID() == b.PaymentIntentID() {
			return domain.NewConflictError("booking already exists for this payment intent")
		}
	}
	r.store.bookings[b.ID()] = cloneBooking(b)
	return nil
}

func (r *fakeBookingRepo) Update(ctx context.Context, b *booking.Booking) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.updateErr != nil {
		return r.store.updateErr
	}
	existing, ok := r.store.bookings[b.ID()]
	if !ok {
		return domain.NewNotFoundError("Booking", b.ID().String())
	}
	if existing.Version() != b.Version()-1 {
		return domain.NewConflictError("booking was modified by another request")
	}
	r.store.bookings[b.ID()] = cloneBooking(b)
	return nil
}

func (r *fakeBookingRepo) ApplyPaymentTransition(ctx context.Context, intentID string, t booking.Transition) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for id, b := range r.store.bookings {
		if b.PaymentIntentID() != intentID {
			continue
		}
		next := cloneBooking(b)
		if !next.ApplyPayment(t) {
			return false, nil
		}
		next.IncrementVersion()
		r.store.bookings[id] = next
		return true, nil
	}
	return false, nil
}

func (r *fakeBookingRepo) LockProperty(ctx context.Context, propertyID uuid.UUID) error {
	if !r.inTx {
		return errors.New("LockProperty outside transaction")
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if !r.store.properties[propertyID] {
		return domain.NewNotFoundError("Property", propertyID.String())
	}
	return nil
}

func (r *fakeBookingRepo) Transaction(ctx context.Context, fn func(repo booking.Repository) error) error {
	r.store.txMu.Lock()
	defer r.store.txMu.Unlock()

	r.store.mu.Lock()
	snapshot := make(map[uuid.UUID]*booking.Booking, len(r.store.bookings))
	for id, b := range r.store.bookings {
		snapshot[id] = cloneBooking(b)
	}
	r.store.mu.Unlock()

	if err := fn(&fakeBookingRepo{store: r.store, inTx: true}); err != nil {
		r.store.mu.Lock()
		r.store.bookings = snapshot
		r.store.mu.Unlock()
		return err
	}
	return nil
}

// --- properties ---

type fakePropertyRepo struct {
	mu    sync.Mutex
	props map[uuid.UUID]*property.Property
	finds int
	// bookings mirrors property existence for LockProperty
	bookings *fakeBookingRepo
}

func newFakePropertyRepo(bookings *fakeBookingRepo) *fakePropertyRepo {
	return &fakePropertyRepo{props: make(map[uuid.UUID]*property.Property), bookings: bookings}
}

func cloneProperty(p *property.Property) *property.Property {
	return property.Reconstitute(p.ID(), p.OwnerID(), p.Details(), p.Location(), p.PricePerNight(), p.CreatedAt(), p.UpdatedAt())
}

func (r *fakePropertyRepo) FindByID(ctx context.Context, id uuid.UUID) (*property.Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finds++
	if p, ok := r.props[id]; ok {
		return cloneProperty(p), nil
	}
	return nil, domain.NewNotFoundError("Property", id.String())
}

func (r *fakePropertyRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*property.Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*property.Property
	for _, id := range ids {
		if p, ok := r.props[id]; ok {
			out = append(out, cloneProperty(p))
		}
	}
	return out, nil
}

func (r *fakePropertyRepo) sorted() []*property.Property {
	out := make([]*property.Property, 0, len(r.props))
	for _, p := range r.props {
		out = append(out, cloneProperty(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt().After(out[j].CreatedAt()) })
	return out
}

func (r *fakePropertyRepo) List(ctx context.Context, page, pageSize int) ([]*property.Property, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.sorted()
	start := (page - 1) * pageSize
	if start > len(all) {
		start = len(all)
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], int64(len(all)), nil
}

func (r *fakePropertyRepo) SearchByCity(ctx context.Context, city string) ([]*property.Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*property.Property
	for _, p := range r.sorted() {
		if containsFold(p.Details().City, city) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePropertyRepo) Save(ctx context.Context, p *property.Property) error {
	r.mu.Lock()
	r.props[p.ID()] = cloneProperty(p)
	r.mu.Unlock()
	if r.bookings != nil {
		r.bookings.store.mu.Lock()
		r.bookings.store.properties[p.ID()] = true
		r.bookings.store.mu.Unlock()
	}
	return nil
}

func (r *fakePropertyRepo) Update(ctx context.Context, p *property.Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.props[p.ID()]; !ok {
		return domain.NewNotFoundError("Property", p.ID().String())
	}
	r.props[p.ID()] = cloneProperty(p)
	return nil
}

func (r *fakePropertyRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.props[id]; !ok {
		return domain.NewNotFoundError("Property", id.String())
	}
	delete(r.props, id)
	if r.bookings != nil {
		r.bookings.store.mu.Lock()
		delete(r.bookings.store.properties, id)
		r.bookings.store.mu.Unlock()
	}
	return nil
}

func (r *fakePropertyRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*property.Property, error) {
	return r.FindByID(ctx, id)
}

func (r *fakePropertyRepo) CountActiveBookings(ctx context.Context, id uuid.UUID) (int64, error) {
	if r.bookings == nil {
		return 0, nil
	}
	return r.bookings.CountActiveByPropertyID(ctx, id)
}

// Transaction shares the booking store's transaction lock, the way the property row
// lock is shared with booking writers.
func (r *fakePropertyRepo) Transaction(ctx context.Context, fn func(repo property.Repository) error) error {
	if r.bookings != nil {
		r.bookings.store.txMu.Lock()
		defer r.bookings.store.txMu.Unlock()
	}

	r.mu.Lock()
	snapshot := make(map[uuid.UUID]*property.Property, len(r.props))
	for id, p := range r.props {
		snapshot[id] = cloneProperty(p)
	}
	r.mu.Unlock()

	if err := fn(r); err != nil {
		r.mu.Lock()
		r.props = snapshot
		r.mu.Unlock()
		return err
	}
	return nil
}

// --- users ---

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*user.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*user.User)}
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, domain.NewNotFoundError("User", id.String())
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email() == email {
			return u, nil
		}
	}
	return nil, domain.NewNotFoundError("User", email)
}

func (r *fakeUserRepo) Save(ctx context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email() == u.Email() {
			return domain.NewConflictError("user already exists")
		}
	}
	r.users[u.ID()] = u
	return nil
}

func (r *fakeUserRepo) Update(ctx context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID()] = u
	return nil
}

func (r *fakeUserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
	return nil
}

// --- favorites ---

type favKey struct{ user, property uuid.UUID }

type fakeFavoriteRepo struct {
	mu       sync.Mutex
	favs     map[favKey]time.Time
	batchHit int
}

func newFakeFavoriteRepo() *fakeFavoriteRepo {
	return &fakeFavoriteRepo{favs: make(map[favKey]time.Time)}
}

func (r *fakeFavoriteRepo) Toggle(ctx context.Context, userID, propertyID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := favKey{userID, propertyID}
	if _, ok := r.favs[k]; ok {
		delete(r.favs, k)
		return false, nil
	}
	r.favs[k] = time.Now()
	return true, nil
}

func (r *fakeFavoriteRepo) Exists(ctx context.Context, userID, propertyID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.favs[favKey{userID, propertyID}]
	return ok, nil
}

func (r *fakeFavoriteRepo) FavoritedAmong(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batchHit++
	out := make(map[uuid.UUID]bool)
	for _, id := range ids {
		if _, ok := r.favs[favKey{userID, id}]; ok {
			out[id] = true
		}
	}
	return out, nil
}

func (r *fakeFavoriteRepo) ListPropertyIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	type entry struct {
		id uuid.UUID
		at time.Time
	}
	var entries []entry
	for k, at := range r.favs {
		if k.user == userID {
			entries = append(entries, entry{k.property, at})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].at.After(entries[j].at) })
	ids := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		ids[i] = e.id
	}
	return ids, nil
}

func (r *fakeFavoriteRepo) CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	ids, _ := r.ListPropertyIDs(ctx, userID)
	return int64(len(ids)), nil
}

// --- gateway ---

type fakeGateway struct {
	mu        sync.Mutex
	seq       int
	amounts   map[string]int64
	creates   int
	updates   int
	cancels   []string
	createErr error
	updateErr error
	cancelErr error
	// createHook runs after an intent is created, outside the gateway lock
	createHook func()
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{amounts: make(map[string]int64)}
}

func (g *fakeGateway) CreateIntent(ctx context.Context, amountMinor int64, currency string, customer adapter.Customer, metadata map[string]string) (*adapter.Intent, error) {
	g.mu.Lock()
	g.creates++
	if g.createErr != nil {
		g.mu.Unlock()
		return nil, g.createErr
	}
	g.seq++
	id := fmt.Sprintf("pi_%d", g.seq)
	g.amounts[id] = amountMinor
	hook := g.createHook
	g.mu.Unlock()

	if hook != nil {
		hook()
	}
	return &adapter.Intent{ID: id, ClientSecret: id + "_secret", EphemeralKey: "ek_" + id, CustomerID: "cus_" + id}, nil
}

func (g *fakeGateway) UpdateIntentAmount(ctx context.Context, intentID string, amountMinor int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.updates++
	if g.updateErr != nil {
		return g.updateErr
	}
	g.amounts[intentID] = amountMinor
	return nil
}

func (g *fakeGateway) CancelIntent(ctx context.Context, intentID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cancelErr != nil {
		return g.cancelErr
	}
	g.cancels = append(g.cancels, intentID)
	return nil
}

func (g *fakeGateway) VerifyWebhook(payload []byte, signature string) (adapter.PaymentEvent, error) {
	return adapter.PaymentEvent{}, domain.NewSignatureInvalidError()
}

func (g *fakeGateway) amount(intentID string) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.amounts[intentID]
}

func (g *fakeGateway) cancelCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.cancels)
}

// --- events ---

type fakePublisher struct {
	mu    sync.Mutex
	types []string
}

func (p *fakePublisher) Publish(ctx context.Context, eventType string, event events.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.types = append(p.types, eventType)
	return nil
}

func (p *fakePublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.types...)
}

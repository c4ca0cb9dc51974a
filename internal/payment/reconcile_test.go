package payment

import (
	"context"
	"errors"
	"testing"

	"resto_back_end/internal/models"
	"resto_back_end/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Fakes ---

type fakeStore struct {
	orders    map[int64]*models.Order
	snapshots map[int64]*models.DishSnapshot
	guests    map[int64]*models.Guest
	updates   int
	failNext  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:    map[int64]*models.Order{},
		snapshots: map[int64]*models.DishSnapshot{},
		guests:    map[int64]*models.Guest{},
	}
}

func (f *fakeStore) FindOrder(_ context.Context, id int64) (*models.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, store.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id int64, to models.OrderStatus, handlerID *string) (*models.Order, error) {
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return nil, err
	}
	o, ok := f.orders[id]
	if !ok {
		return nil, store.ErrOrderNotFound
	}
	if o.Status == to {
		cp := *o
		return &cp, store.ErrAlreadyProcessed
	}
	if !models.CanTransition(o.Status, to) {
		cp := *o
		return &cp, store.ErrInvalidTransition
	}
	o.Status = to
	if handlerID != nil {
		o.HandlerID = handlerID
	}
	f.updates++
	cp := *o
	return &cp, nil
}

func (f *fakeStore) FindDishSnapshot(_ context.Context, id int64) (*models.DishSnapshot, error) {
	s, ok := f.snapshots[id]
	if !ok {
		return nil, store.ErrDishNotFound
	}
	return s, nil
}

func (f *fakeStore) FindGuest(_ context.Context, id int64) (*models.Guest, error) {
	g, ok := f.guests[id]
	if !ok {
		return nil, store.ErrGuestNotFound
	}
	return g, nil
}

type sentEvent struct {
	event   string
	guestID *int64
	payload interface{}
}

type fakeNotifier struct{ sent []sentEvent }

func (f *fakeNotifier) BroadcastToManagers(_ context.Context, event string, payload interface{}) {
	f.sent = append(f.sent, sentEvent{event: event, payload: payload})
}

func (f *fakeNotifier) NotifyGuest(_ context.Context, guestID int64, event string, payload interface{}) {
	f.sent = append(f.sent, sentEvent{event: event, guestID: &guestID, payload: payload})
}

func seedDeliveredOrder(f *fakeStore) *models.Order {
	guestID := int64(7)
	o := &models.Order{
		ID: 42, GuestID: &guestID, DishSnapshotID: 9,
		Quantity: 2, Price: 10000, TotalPrice: 20000,
		Status: models.StatusDelivered,
	}
	f.orders[42] = o
	f.snapshots[9] = &models.DishSnapshot{ID: 9, Name: "Pho bo", Price: 10000}
	f.guests[7] = &models.Guest{ID: 7, Name: "Table 4"}
	return o
}

// --- Tests ---

func TestApplyPaymentOutcome_ExactementUneFois(t *testing.T) {
	fs := newFakeStore()
	fn := &fakeNotifier{}
	seedDeliveredOrder(fs)
	r := NewReconciler(fs, fn)

	// première livraison : mutation + fan-out manager et invité
	res, err := r.ApplyPaymentOutcome(context.Background(), 42, "00", "success")
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)
	assert.Equal(t, models.StatusPaid, res.Order.Status)
	assert.Equal(t, 1, fs.updates)
	require.Len(t, fn.sent, 2)
	assert.Equal(t, EventPayment, fn.sent[0].event)
	assert.Nil(t, fn.sent[0].guestID)
	require.NotNil(t, fn.sent[1].guestID)
	assert.Equal(t, int64(7), *fn.sent[1].guestID)

	// livraison dupliquée : aucun nouvel update, aucune ré-émission
	res, err = r.ApplyPaymentOutcome(context.Background(), 42, "00", "success")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyProcessed, res.Outcome)
	assert.Equal(t, 1, fs.updates)
	assert.Len(t, fn.sent, 2)
}

func TestApplyPaymentOutcome_CommandeInconnue(t *testing.T) {
	fs := newFakeStore()
	fn := &fakeNotifier{}
	r := NewReconciler(fs, fn)

	res, err := r.ApplyPaymentOutcome(context.Background(), 404, "00", "success")
	require.NoError(t, err) // acquitté, pas une erreur qui ferait réessayer
	assert.Equal(t, OutcomeOrderNotFound, res.Outcome)
	assert.Empty(t, fn.sent)
	assert.Zero(t, fs.updates)
}

func TestApplyPaymentOutcome_ResultatsNegatifs(t *testing.T) {
	cases := []struct {
		code, desc string
		want       models.OrderStatus
	}{
		{"01", "transaction failed", models.StatusFailed},
		{"02", "Cancelled by user", models.StatusCancelled},
	}
	for _, c := range cases {
		fs := newFakeStore()
		fn := &fakeNotifier{}
		seedDeliveredOrder(fs)
		r := NewReconciler(fs, fn)

		res, err := r.ApplyPaymentOutcome(context.Background(), 42, c.code, c.desc)
		require.NoError(t, err)
		assert.Equal(t, OutcomeApplied, res.Outcome)
		assert.Equal(t, c.want, res.Order.Status)
		// le résultat négatif est diffusé aussi
		require.Len(t, fn.sent, 2)
		assert.Equal(t, c.want, res.Payload[0].Status)
	}
}

func TestApplyPaymentOutcome_TransitionImpossible(t *testing.T) {
	fs := newFakeStore()
	fn := &fakeNotifier{}
	o := seedDeliveredOrder(fs)
	o.Status = models.StatusCreated // jamais servie : Created → Paid interdit
	r := NewReconciler(fs, fn)

	res, err := r.ApplyPaymentOutcome(context.Background(), 42, "00", "success")
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, res.Outcome)
	assert.Equal(t, models.StatusCreated, fs.orders[42].Status)
	assert.Empty(t, fn.sent)
}

func TestApplyPaymentOutcome_ErreurPersistance(t *testing.T) {
	fs := newFakeStore()
	fn := &fakeNotifier{}
	seedDeliveredOrder(fs)
	fs.failNext = errors.New("scylla indisponible")
	r := NewReconciler(fs, fn)

	_, err := r.ApplyPaymentOutcome(context.Background(), 42, "00", "success")
	require.Error(t, err) // → 500, le prestataire réessaiera
	assert.Empty(t, fn.sent)
}

func TestApplyPaymentOutcome_SnapshotManquantNonBloquant(t *testing.T) {
	fs := newFakeStore()
	fn := &fakeNotifier{}
	seedDeliveredOrder(fs)
	delete(fs.snapshots, 9)
	r := NewReconciler(fs, fn)

	res, err := r.ApplyPaymentOutcome(context.Background(), 42, "00", "success")
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)
	require.Len(t, res.Payload, 1)
	assert.Nil(t, res.Payload[0].DishSnapshot)
}

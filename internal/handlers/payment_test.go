package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"resto_back_end/internal/models"
	"resto_back_end/internal/payment"
	"resto_back_end/internal/payos"
	"resto_back_end/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testChecksumKey = "cle-webhook-test"

// --- Fakes ---

type fakeStore struct {
	orders  map[int64]*models.Order
	updates int
}

func (f *fakeStore) FindOrder(_ context.Context, id int64) (*models.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, store.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id int64, to models.OrderStatus, _ *string) (*models.Order, error) {
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
	f.updates++
	cp := *o
	return &cp, nil
}

func (f *fakeStore) FindDishSnapshot(_ context.Context, id int64) (*models.DishSnapshot, error) {
	return &models.DishSnapshot{ID: id, Name: "Com tam", Price: 10000}, nil
}

func (f *fakeStore) FindGuest(_ context.Context, id int64) (*models.Guest, error) {
	return &models.Guest{ID: id, Name: "Table 2"}, nil
}

type fakeNotifier struct{ events []string }

func (f *fakeNotifier) BroadcastToManagers(_ context.Context, event string, _ interface{}) {
	f.events = append(f.events, "room:"+event)
}

func (f *fakeNotifier) NotifyGuest(_ context.Context, guestID int64, event string, _ interface{}) {
	f.events = append(f.events, fmt.Sprintf("guest:%d:%s", guestID, event))
}

// --- Montage ---

func newTestRouter(fs *fakeStore, fn *fakeNotifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	client := &payos.Client{ChecksumKey: testChecksumKey}
	h := &PaymentHandler{
		PayOS:      client,
		Reconciler: payment.NewReconciler(fs, fn),
		Notifier:   fn,
	}
	r := gin.New()
	r.POST("/receive-hook", h.ReceiveHook)
	r.POST("/handle-payment-redirect", h.HandlePaymentRedirect)
	r.POST("/create-embedded-payment-link", h.CreateEmbeddedPaymentLink)
	return r
}

func seededStore() *fakeStore {
	guestID := int64(7)
	return &fakeStore{orders: map[int64]*models.Order{
		42: {ID: 42, GuestID: &guestID, DishSnapshotID: 9, Quantity: 2,
			Price: 10000, TotalPrice: 20000, Status: models.StatusDelivered},
	}}
}

func signedWebhookBody(t *testing.T, orderCode int64) []byte {
	t.Helper()
	canonical := fmt.Sprintf("amount=20000&code=00&desc=success&orderCode=%d", orderCode)
	mac := hmac.New(sha256.New, []byte(testChecksumKey))
	mac.Write([]byte(canonical))
	sig := hex.EncodeToString(mac.Sum(nil))

	return []byte(fmt.Sprintf(
		`{"code":"00","desc":"success","success":true,"data":{"data":{"amount":20000,"code":"00","desc":"success","orderCode":%d},"signature":"%s"}}`,
		orderCode, sig))
}

func post(r *gin.Engine, path string, body []byte) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

// --- Tests ---

func TestReceiveHook_ConfirmationUneSeuleFois(t *testing.T) {
	fs := seededStore()
	fn := &fakeNotifier{}
	r := newTestRouter(fs, fn)
	body := signedWebhookBody(t, 42)

	w := post(r, "/receive-hook", body)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StatusPaid, fs.orders[42].Status)
	assert.Equal(t, 1, fs.updates)
	assert.Equal(t, []string{"room:payment", "guest:7:payment"}, fn.events)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])

	// redelivery du même webhook : 200, aucune nouvelle mutation ni notification
	w = post(r, "/receive-hook", body)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, fs.updates)
	assert.Len(t, fn.events, 2)
}

func TestReceiveHook_SignatureFalsifiee(t *testing.T) {
	fs := seededStore()
	fn := &fakeNotifier{}
	r := newTestRouter(fs, fn)

	body := strings.Replace(string(signedWebhookBody(t, 42)),
		`"amount":20000`, `"amount":1`, 1)
	w := post(r, "/receive-hook", []byte(body))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, models.StatusDelivered, fs.orders[42].Status) // zéro mutation
	assert.Empty(t, fn.events)
}

func TestReceiveHook_PayloadMalforme(t *testing.T) {
	fs := seededStore()
	fn := &fakeNotifier{}
	r := newTestRouter(fs, fn)

	w := post(r, "/receive-hook", []byte(`{"code":"00","desc":"ok"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, fs.updates)
}

func TestReceiveHook_CommandeInconnueAcquittee(t *testing.T) {
	fs := seededStore()
	fn := &fakeNotifier{}
	r := newTestRouter(fs, fn)

	// orderCode inconnu → 200 quand même, pour ne pas déclencher de retries
	w := post(r, "/receive-hook", signedWebhookBody(t, 404))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, fs.updates)
	assert.Empty(t, fn.events)
}

func TestHandlePaymentRedirect_JamaisDeMutation(t *testing.T) {
	fs := seededStore()
	fn := &fakeNotifier{}
	r := newTestRouter(fs, fn)

	w := post(r, "/handle-payment-redirect",
		[]byte(`{"orderCode":"42","status":"PAID"}`))

	assert.Equal(t, http.StatusOK, w.Code)
	// seul l'événement provisoire part vers la room manager…
	assert.Equal(t, []string{"room:ui_preliminary_payment_update"}, fn.events)
	// …et l'état persisté ne bouge jamais, quel que soit le payload
	assert.Equal(t, models.StatusDelivered, fs.orders[42].Status)
	assert.Zero(t, fs.updates)
}

func TestHandlePaymentRedirect_Incomplet(t *testing.T) {
	r := newTestRouter(seededStore(), &fakeNotifier{})
	w := post(r, "/handle-payment-redirect", []byte(`{"status":"PAID"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateEmbeddedPaymentLink_Validation(t *testing.T) {
	r := newTestRouter(seededStore(), &fakeNotifier{})

	cases := []string{
		`{"orderCode":0,"amount":100,"items":[{"name":"a","quantity":1,"price":100}]}`,
		`{"orderCode":1,"amount":0,"items":[{"name":"a","quantity":1,"price":100}]}`,
		`{"orderCode":1,"amount":100,"items":[]}`,
	}
	for _, body := range cases {
		w := post(r, "/create-embedded-payment-link", []byte(body))
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestCreateEmbeddedPaymentLink_Succes(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/v2/payment-requests", req.URL.Path)
		var body payos.CreatePaymentLinkRequest
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		assert.NotEmpty(t, body.Signature)
		assert.Contains(t, body.ReturnURL, "/payment-callback")

		fmt.Fprintf(w, `{"code":"00","desc":"success","data":{"orderCode":%d,"amount":%d,"checkoutUrl":"https://pay.example/x","qrCode":"00020101...","paymentLinkId":"pl_1","status":"PENDING","currency":"VND"}}`,
			body.OrderCode, body.Amount)
	}))
	defer provider.Close()

	fs := seededStore()
	fn := &fakeNotifier{}
	gin.SetMode(gin.TestMode)
	h := &PaymentHandler{
		PayOS: &payos.Client{
			ChecksumKey: testChecksumKey,
			BaseURL:     provider.URL,
			HTTP:        provider.Client(),
		},
		Reconciler: payment.NewReconciler(fs, fn),
		Notifier:   fn,
	}
	r := gin.New()
	r.POST("/create-embedded-payment-link", h.CreateEmbeddedPaymentLink)

	w := post(r, "/create-embedded-payment-link",
		[]byte(`{"orderCode":42,"amount":20000,"description":"Table 2","items":[{"name":"Com tam","quantity":2,"price":10000}]}`))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "https://pay.example/x", resp["checkoutUrl"])
	// le QR du prestataire est aussi rendu en PNG base64 côté serveur
	assert.True(t, strings.HasPrefix(resp["qrImage"].(string), "data:image/png;base64,"))
	// aucune mutation locale sur la création de lien
	assert.Zero(t, fs.updates)
	assert.Empty(t, fn.events)
}

package payos

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testChecksumKey = "cle-de-test-tres-secrete"

func signCanonical(t *testing.T, canonical string) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(testChecksumKey))
	mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil))
}

// webhookBody fabrique une enveloppe complète signée comme le ferait le
// prestataire : HMAC sur `cle=valeur&...` trié par clé.
func webhookBody(t *testing.T, signature string) []byte {
	t.Helper()
	inner := `{"accountNumber":"999888777","amount":40000,"code":"00","currency":"VND","desc":"success","description":"Ban 4 123456","orderCode":42,"paymentLinkId":"abc123","reference":"FT250001","transactionDateTime":"2025-06-01 12:00:00","virtualAccountNumber":null}`
	return []byte(fmt.Sprintf(`{"code":"00","desc":"success","success":true,"data":{"data":%s,"signature":"%s"}}`, inner, signature))
}

func validSignature(t *testing.T) string {
	canonical := "accountNumber=999888777" +
		"&amount=40000" +
		"&code=00" +
		"&currency=VND" +
		"&desc=success" +
		"&description=Ban 4 123456" +
		"&orderCode=42" +
		"&paymentLinkId=abc123" +
		"&reference=FT250001" +
		"&transactionDateTime=2025-06-01 12:00:00" +
		"&virtualAccountNumber="
	return signCanonical(t, canonical)
}

func TestVerifyWebhookData_OK(t *testing.T) {
	c := &Client{ChecksumKey: testChecksumKey}

	_, wd, err := ParseWebhook(webhookBody(t, validSignature(t)))
	require.NoError(t, err)

	tx, err := c.VerifyWebhookData(wd)
	require.NoError(t, err)
	assert.Equal(t, int64(42), tx.OrderCode)
	assert.Equal(t, int64(40000), tx.Amount)
	assert.Equal(t, CodeSuccess, tx.Code)
	assert.Equal(t, "abc123", tx.PaymentLinkID)
}

func TestVerifyWebhookData_SignatureFalsifiee(t *testing.T) {
	c := &Client{ChecksumKey: testChecksumKey}

	_, wd, err := ParseWebhook(webhookBody(t, "deadbeef"+validSignature(t)[8:]))
	require.NoError(t, err)

	tx, err := c.VerifyWebhookData(wd)
	assert.ErrorIs(t, err, ErrInvalidSignature)
	assert.Nil(t, tx)
}

func TestVerifyWebhookData_ContenuModifie(t *testing.T) {
	c := &Client{ChecksumKey: testChecksumKey}

	// signature valide mais montant gonflé après signature
	body := strings.Replace(string(webhookBody(t, validSignature(t))),
		`"amount":40000`, `"amount":990000`, 1)

	_, wd, err := ParseWebhook([]byte(body))
	require.NoError(t, err)

	_, err = c.VerifyWebhookData(wd)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestParseWebhook_Malforme(t *testing.T) {
	cases := map[string]string{
		"pas de data":      `{"code":"00","desc":"ok"}`,
		"data null":        `{"code":"00","data":null}`,
		"pas de signature": `{"code":"00","data":{"data":{"orderCode":1}}}`,
		"pas de details":   `{"code":"00","data":{"signature":"abcd"}}`,
		"json cassé":       `{"code":`,
	}
	for name, body := range cases {
		_, _, err := ParseWebhook([]byte(body))
		assert.ErrorIs(t, err, ErrMalformedPayload, name)
	}
}

func TestCanonicalize_TriEtNull(t *testing.T) {
	raw := json.RawMessage(`{"b":2,"a":"x","c":null,"d":true}`)
	s, err := canonicalize(raw)
	require.NoError(t, err)
	assert.Equal(t, "a=x&b=2&c=&d=true", s)
}

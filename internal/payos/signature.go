package payos

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

var (
	ErrMalformedPayload = errors.New("payos: payload webhook malformé")
	ErrInvalidSignature = errors.New("payos: signature webhook invalide")
)

// WebhookEnvelope : enveloppe complète reçue sur /receive-hook.
type WebhookEnvelope struct {
	Code    string          `json:"code"`
	Desc    string          `json:"desc"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

// WebhookData : l'objet `data` de l'enveloppe — il contient les détails de
// transaction (l'objet `data` interne, qui est la partie signée) et la
// signature détachée.
type WebhookData struct {
	Data      json.RawMessage `json:"data"`
	Signature string          `json:"signature"`
}

// TransactionData : détails de transaction vérifiés. `orderCode` est l'ID
// de commande interne transmis au prestataire à la création du lien.
type TransactionData struct {
	OrderCode            int64  `json:"orderCode"`
	Amount               int64  `json:"amount"`
	Description          string `json:"description"`
	AccountNumber        string `json:"accountNumber"`
	Reference            string `json:"reference"`
	TransactionDateTime  string `json:"transactionDateTime"`
	VirtualAccountNumber string `json:"virtualAccountNumber"`
	Currency             string `json:"currency"`
	PaymentLinkID        string `json:"paymentLinkId"`
	Code                 string `json:"code"`
	Desc                 string `json:"desc"`
}

// CodeSuccess : code retourné par le prestataire quand la transaction a réussi.
const CodeSuccess = "00"

// ParseWebhook valide la structure de l'enveloppe. Tout champ manquant
// (signature ou détails de transaction) rejette le payload avant la moindre
// vérification cryptographique.
func ParseWebhook(raw []byte) (*WebhookEnvelope, *WebhookData, error) {
	var env WebhookEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return nil, nil, ErrMalformedPayload
	}

	var wd WebhookData
	if err := json.Unmarshal(env.Data, &wd); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if wd.Signature == "" || len(wd.Data) == 0 || bytes.Equal(wd.Data, []byte("null")) {
		return nil, nil, ErrMalformedPayload
	}
	return &env, &wd, nil
}

// VerifyWebhookData recalcule la signature HMAC-SHA256 sur la forme canonique
// des détails de transaction et la compare (en temps constant) à la signature
// fournie. Seuls les champs vérifiés sortent d'ici — jamais l'enveloppe brute.
func (c *Client) VerifyWebhookData(wd *WebhookData) (*TransactionData, error) {
	canonical, err := canonicalize(wd.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	mac := hmac.New(sha256.New, []byte(c.ChecksumKey))
	mac.Write([]byte(canonical))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(wd.Signature)) {
		return nil, ErrInvalidSignature
	}

	var tx TransactionData
	if err := json.Unmarshal(wd.Data, &tx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return &tx, nil
}

// canonicalize produit la chaîne `cle=valeur&...` triée alphabétiquement sur
// les clés, telle que le prestataire la signe. null devient une chaîne vide,
// les nombres gardent leur forme JSON d'origine.
func canonicalize(raw json.RawMessage) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var fields map[string]interface{}
	if err := dec.Decode(&fields); err != nil {
		return "", err
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b bytes.Buffer
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(stringifyValue(fields[k]))
	}
	return b.String(), nil
}

func stringifyValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		// tableaux et objets imbriqués : forme JSON compacte
		data, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

// signPaymentRequest signe une demande de création de lien :
// amount, cancelUrl, description, orderCode, returnUrl — dans cet ordre.
func (c *Client) signPaymentRequest(req *CreatePaymentLinkRequest) string {
	canonical := fmt.Sprintf("amount=%d&cancelUrl=%s&description=%s&orderCode=%d&returnUrl=%s",
		req.Amount, req.CancelURL, req.Description, req.OrderCode, req.ReturnURL)

	mac := hmac.New(sha256.New, []byte(c.ChecksumKey))
	mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil))
}

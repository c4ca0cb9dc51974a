package payos

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

const defaultBaseURL = "https://api-merchant.payos.vn"

// Client : client HTTP vers le prestataire de paiement. La ChecksumKey est la
// clé pré-partagée qui signe les demandes sortantes et vérifie les webhooks
// entrants.
type Client struct {
	ClientID    string
	APIKey      string
	ChecksumKey string
	BaseURL     string
	HTTP        *http.Client
}

// NewClientFromEnv construit le client depuis les variables d'environnement.
func NewClientFromEnv() *Client {
	base := os.Getenv("PAYOS_BASE_URL")
	if base == "" {
		base = defaultBaseURL
	}
	return &Client{
		ClientID:    os.Getenv("PAYOS_CLIENT_ID"),
		APIKey:      os.Getenv("PAYOS_API_KEY"),
		ChecksumKey: os.Getenv("PAYOS_CHECKSUM_KEY"),
		BaseURL:     base,
		HTTP:        &http.Client{Timeout: 15 * time.Second},
	}
}

type Item struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    int64  `json:"price"`
}

type CreatePaymentLinkRequest struct {
	OrderCode   int64  `json:"orderCode"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	Items       []Item `json:"items"`
	ReturnURL   string `json:"returnUrl"`
	CancelURL   string `json:"cancelUrl"`
	Signature   string `json:"signature"`
}

// PaymentLink : payload retourné au client (URL de checkout, données QR,
// code de commande côté prestataire).
type PaymentLink struct {
	Bin           string `json:"bin"`
	AccountNumber string `json:"accountNumber"`
	AccountName   string `json:"accountName"`
	Amount        int64  `json:"amount"`
	Description   string `json:"description"`
	OrderCode     int64  `json:"orderCode"`
	Currency      string `json:"currency"`
	PaymentLinkID string `json:"paymentLinkId"`
	Status        string `json:"status"`
	CheckoutURL   string `json:"checkoutUrl"`
	QRCode        string `json:"qrCode"`
}

type apiResponse struct {
	Code string          `json:"code"`
	Desc string          `json:"desc"`
	Data json.RawMessage `json:"data"`
}

// CreatePaymentLink demande un lien de paiement au prestataire. Aucun état
// local n'est modifié ici : un échec ou un timeout ne laisse rien derrière —
// seule la voie webhook mute les commandes.
func (c *Client) CreatePaymentLink(ctx context.Context, req CreatePaymentLinkRequest) (*PaymentLink, error) {
	req.Signature = c.signPaymentRequest(&req)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+"/v2/payment-requests", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-client-id", c.ClientID)
	httpReq.Header.Set("x-api-key", c.APIKey)

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("appel prestataire échoué: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var apiResp apiResponse
	if err := json.Unmarshal(raw, &apiResp); err != nil {
		return nil, fmt.Errorf("réponse prestataire illisible (HTTP %d): %w", resp.StatusCode, err)
	}
	if apiResp.Code != CodeSuccess {
		log.Printf("❌ Prestataire a refusé la création du lien (code %s): %s", apiResp.Code, apiResp.Desc)
		return nil, fmt.Errorf("prestataire: %s (code %s)", apiResp.Desc, apiResp.Code)
	}

	var link PaymentLink
	if err := json.Unmarshal(apiResp.Data, &link); err != nil {
		return nil, fmt.Errorf("données du lien illisibles: %w", err)
	}

	log.Printf("💳 Lien de paiement créé : %s (commande %d, %d)", link.PaymentLinkID, link.OrderCode, link.Amount)
	return &link, nil
}

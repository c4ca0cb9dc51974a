package handlers

import (
	"context"
	"log"
	"net/http"
	"os"
	"strings"

	"resto_back_end/internal/payment"
	"resto_back_end/internal/payos"
	"resto_back_end/internal/realtime"
	"resto_back_end/internal/utils"

	"github.com/gin-gonic/gin"
)

// PaymentHandler : les trois endpoints tournés vers le prestataire de
// paiement. La frontière de confiance du design passe ici : la redirection
// navigateur ne peut que déclencher un événement provisoire, seul le webhook
// signé mute l'état persisté.
type PaymentHandler struct {
	PayOS      *payos.Client
	Reconciler *payment.Reconciler
	Notifier   payment.Notifier
	// PostConfirm : effets de bord après une confirmation appliquée
	// (invalidation cache, indexation, reçu). Jamais appelé sur un no-op
	// idempotent.
	PostConfirm func(ctx context.Context, res *payment.Result)
}

type createPaymentLinkRequest struct {
	OrderCode   int64        `json:"orderCode"`
	Amount      int64        `json:"amount"`
	Description string       `json:"description"`
	Items       []payos.Item `json:"items"`
}

type paymentLinkResponse struct {
	payos.PaymentLink
	QRImage string `json:"qrImage,omitempty"`
}

func frontendDomain() string {
	domain := os.Getenv("FRONTEND_DOMAIN")
	if domain == "" {
		domain = "http://localhost:3000"
	}
	return domain
}

// CreateEmbeddedPaymentLink valide la demande et la transmet au prestataire.
// Aucune mutation locale : un échec ici ne laisse aucun état partiel.
func (h *PaymentHandler) CreateEmbeddedPaymentLink(c *gin.Context) {
	var req createPaymentLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.OrderCode == 0 || req.Amount <= 0 || len(req.Items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   true,
			"message": "Informations de commande invalides (orderCode, amount, items).",
		})
		return
	}

	description := req.Description
	if description == "" {
		description = "Paiement commande"
	}

	domain := frontendDomain()
	link, err := h.PayOS.CreatePaymentLink(c.Request.Context(), payos.CreatePaymentLinkRequest{
		OrderCode:   req.OrderCode,
		Amount:      req.Amount,
		Description: description,
		Items:       req.Items,
		ReturnURL:   domain + "/payment-callback",
		CancelURL:   domain + "/payment-callback",
	})
	if err != nil {
		log.Println("❌ Création du lien de paiement échouée:", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": true, "message": err.Error()})
		return
	}

	resp := paymentLinkResponse{PaymentLink: *link}
	if link.QRCode != "" {
		if qr, err := utils.PaymentQRBase64(link.QRCode); err == nil {
			resp.QRImage = qr
		}
	}
	c.JSON(http.StatusOK, resp)
}

type redirectRequest struct {
	OrderCode string `json:"orderCode"`
	Status    string `json:"status"`
	Cancel    string `json:"cancel"`
}

// HandlePaymentRedirect traite le retour navigateur depuis la page de
// paiement. Ces paramètres sont falsifiables : on n'émet qu'un événement
// provisoire vers le dashboard, jamais une écriture en base.
func (h *PaymentHandler) HandlePaymentRedirect(c *gin.Context) {
	var req redirectRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.OrderCode == "" || req.Status == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": true, "message": "Informations de redirection incomplètes."})
		return
	}

	status := strings.ToUpper(req.Status)
	if status == "PAID" {
		log.Printf("ℹ️ Redirect PAID pour orderCode %s — événement provisoire émis", req.OrderCode)
		h.Notifier.BroadcastToManagers(c.Request.Context(), realtime.EventPreliminaryPayment, gin.H{
			"orderCode": req.OrderCode,
			"status":    status,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"error":    false,
		"verified": true,
		"message":  "Informations de redirection traitées (optimiste).",
		"data":     gin.H{"status": status, "orderCode": req.OrderCode},
	})
}

// ReceiveHook reçoit le webhook du prestataire : structure → signature →
// réconciliation. Les cas "commande introuvable" et "déjà payée" répondent
// quand même 200 pour couper court aux tempêtes de retries.
func (h *PaymentHandler) ReceiveHook(c *gin.Context) {
	const maxBodyBytes = int64(65536)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)

	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": true, "message": "Échec lecture body"})
		return
	}

	_, wd, err := payos.ParseWebhook(raw)
	if err != nil {
		log.Println("❌ Webhook malformé:", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": true, "message": "Données webhook invalides ou incomplètes."})
		return
	}

	tx, err := h.PayOS.VerifyWebhookData(wd)
	if err != nil {
		log.Println("❌ Vérification webhook échouée:", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": true, "message": "Signature webhook invalide."})
		return
	}

	res, err := h.Reconciler.ApplyPaymentOutcome(c.Request.Context(), tx.OrderCode, tx.Code, tx.Desc)
	if err != nil {
		log.Println("❌ Réconciliation échouée:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": true, "message": "Erreur de persistance pendant le traitement."})
		return
	}

	if res.Outcome == payment.OutcomeApplied && h.PostConfirm != nil {
		h.PostConfirm(c.Request.Context(), res)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Webhook received and processed."})
}

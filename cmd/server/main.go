package main

import (
	"context"
	"log"
	"os"

	"resto_back_end/internal/cache"
	"resto_back_end/internal/config"
	"resto_back_end/internal/database"
	"resto_back_end/internal/handlers"
	"resto_back_end/internal/handlers/guest"
	"resto_back_end/internal/handlers/manager"
	"resto_back_end/internal/models"
	"resto_back_end/internal/payment"
	"resto_back_end/internal/payos"
	"resto_back_end/internal/realtime"
	"resto_back_end/internal/routes"
	"resto_back_end/internal/services"
	"resto_back_end/internal/store"
	"resto_back_end/internal/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	config.Load()

	payosClient := payos.NewClientFromEnv()
	if payosClient.ClientID == "" || payosClient.APIKey == "" || payosClient.ChecksumKey == "" {
		log.Fatal("❌ Impossible d'initialiser le prestataire de paiement : clés manquantes")
	}
	log.Println("✅ Client de paiement initialisé")

	database.ConnectDatabases()
	defer database.CloseScylla()

	warmupRedisCache()

	orderStore := store.NewScyllaStore()
	hub := realtime.NewHub(database.Redis, orderStore)
	wsServer := realtime.NewServer(hub, orderStore)
	reconciler := payment.NewReconciler(orderStore, hub)

	paymentHandler := &handlers.PaymentHandler{
		PayOS:       payosClient,
		Reconciler:  reconciler,
		Notifier:    hub,
		PostConfirm: postPaymentConfirm,
	}
	guestHandler := &guest.Handler{Store: orderStore, Hub: hub}
	managerHandler := &manager.Handler{Store: orderStore, Hub: hub}

	r := gin.Default()
	r.Use(cors.New(corsConfig()))
	routes.RegisterRoutes(r, paymentHandler, guestHandler, managerHandler, wsServer)

	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}
	log.Println("🚀 Serveur resto lancé sur le port", port)
	r.Run(":" + port)
}

func corsConfig() cors.Config {
	cfg := cors.DefaultConfig()
	origin := os.Getenv("FRONTEND_DOMAIN")
	if origin == "" {
		origin = "http://localhost:3000"
	}
	cfg.AllowOrigins = []string{origin}
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization")
	return cfg
}

// postPaymentConfirm : effets de bord après une confirmation webhook
// appliquée — invalidation du cache invité, indexation pour le dashboard,
// reçu PDF envoyé au gérant. Tout est hors du chemin critique de réponse au
// prestataire.
func postPaymentConfirm(ctx context.Context, res *payment.Result) {
	if res.Order != nil && res.Order.GuestID != nil {
		cache.InvalidateGuestOrders(ctx, *res.Order.GuestID)
	}
	for _, p := range res.Payload {
		services.IndexOrder(p)
	}

	if res.Order == nil || res.Order.Status != models.StatusPaid {
		return
	}
	payload := res.Payload
	go func() {
		html := utils.GenerateReceiptHTML(payload)
		pdf, err := utils.RenderReceiptPDF(html)
		if err != nil {
			log.Println("❌ Erreur génération PDF du reçu:", err)
			pdf = nil
		}
		if err := utils.SendOwnerReceipt("Paiement confirmé", html, pdf); err != nil {
			log.Println("❌ Erreur envoi du reçu:", err)
		}
	}()
}

// warmupRedisCache pré-chauffe le cache Redis pour éviter la latence du premier appel
func warmupRedisCache() {
	ctx := context.Background()
	if err := database.Redis.Ping(ctx).Err(); err == nil {
		log.Println("✅ Cache Redis pré-chauffé")
	}
}

package services

import (
	"context"
	"net/url"
	"os"
	"strings"
	"time"

	"resto_back_end/internal/database"
	"resto_back_end/internal/models"
)

// SignedDishImageURL transforme la clé d'objet stockée dans un snapshot en
// URL signée à durée limitée. Les images de plats ne sont pas publiques dans
// le bucket.
func SignedDishImageURL(ctx context.Context, objectPath string, duration time.Duration) (string, error) {
	bucket := os.Getenv("MINIO_BUCKET")
	reqParams := make(url.Values)

	// Tolère une URL complète héritée : on ne garde que la clé.
	key := objectPath
	if i := strings.Index(objectPath, bucket+"/"); i >= 0 {
		key = objectPath[i+len(bucket)+1:]
	}

	presignedURL, err := database.MinIO.PresignedGetObject(ctx, bucket, key, duration, reqParams)
	if err != nil {
		return "", err
	}
	return presignedURL.String(), nil
}

// SignProjectionImages remplace les clés d'images par des URLs signées dans
// une liste de projections. Best effort : en cas d'échec la clé brute reste.
func SignProjectionImages(ctx context.Context, orders []models.OrderProjection) {
	for i := range orders {
		snap := orders[i].DishSnapshot
		if snap == nil || snap.Image == "" {
			continue
		}
		if signed, err := SignedDishImageURL(ctx, snap.Image, 1*time.Hour); err == nil {
			snap.Image = signed
		}
	}
}

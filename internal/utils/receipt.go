package utils

import (
	"encoding/base64"
	"fmt"

	"resto_back_end/internal/models"

	"github.com/skip2/go-qrcode"
)

// PaymentQRBase64 rend le payload QR du prestataire en PNG base64, prêt à
// mettre dans un <img src="...">.
func PaymentQRBase64(qrData string) (string, error) {
	png, err := qrcode.Encode(qrData, qrcode.Medium, 256)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

// GenerateReceiptHTML génère le reçu HTML envoyé au gérant après une
// confirmation de paiement (voie webhook uniquement).
func GenerateReceiptHTML(orders []models.OrderProjection) string {
	itemsHTML := ""
	var total int64
	for _, o := range orders {
		name := "—"
		var unit int64
		if o.DishSnapshot != nil {
			name = o.DishSnapshot.Name
			unit = o.DishSnapshot.Price
		}
		itemsHTML += fmt.Sprintf(`
			<tr>
				<td>%s</td>
				<td>%d</td>
				<td>%d</td>
				<td>%d</td>
			</tr>`, name, o.Quantity, unit, o.TotalPrice)
		total += o.TotalPrice
	}

	table := ""
	if len(orders) > 0 && orders[0].Guest != nil && orders[0].Guest.TableNumber != nil {
		table = fmt.Sprintf("Table %d — ", *orders[0].Guest.TableNumber)
	}

	return fmt.Sprintf(`
<!DOCTYPE html>
<html lang="fr">
<head>
	<meta charset="UTF-8">
	<title>Paiement confirmé</title>
</head>
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		<h2 style="color: #333;">%sPaiement confirmé</h2>
		<p>Le prestataire de paiement a confirmé la transaction suivante.</p>

		<table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background-color: #f0f0f0;">
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Plat</th>
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Quantité</th>
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Prix unitaire</th>
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Total</th>
				</tr>
			</thead>
			<tbody>%s</tbody>
		</table>

		<p style="font-size: 18px; font-weight: bold; text-align: right;">Total encaissé : %d</p>
	</div>
</body>
</html>`, table, itemsHTML, total)
}

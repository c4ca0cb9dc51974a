package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"

	"resto_back_end/internal/database"
	"resto_back_end/internal/models"

	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const ordersIndex = "orders"

//
// --- INDEXATION DANS ELASTICSEARCH ---
//

// IndexOrder indexe une projection de commande pour la recherche du
// dashboard manager. Best effort : une indexation ratée ne bloque jamais le
// flux de commande.
func IndexOrder(p models.OrderProjection) {
	if database.Elastic == nil {
		log.Println("⚠️ Elastic non initialisé, impossible d’indexer la commande", p.ID)
		return
	}

	data, _ := json.Marshal(p)
	req := esapi.IndexRequest{
		Index:      ordersIndex,
		DocumentID: strconv.FormatInt(p.ID, 10),
		Body:       bytes.NewReader(data),
		Refresh:    "true",
	}

	res, err := req.Do(context.Background(), database.Elastic)
	if err != nil {
		log.Println("❌ Erreur envoi Elastic:", err)
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Printf("⚠️ Elastic a renvoyé une erreur pour la commande %d: %s", p.ID, res.String())
	}
}

//
// --- RECHERCHE DANS ELASTICSEARCH ---
//

// SearchOrders cherche dans les commandes indexées par nom de plat, statut
// ou nom d'invité.
func SearchOrders(ctx context.Context, query string) ([]map[string]interface{}, error) {
	if database.Elastic == nil {
		return nil, errors.New("client Elasticsearch non initialisé")
	}

	var buf bytes.Buffer
	q := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"dishSnapshot.name", "status", "guest.name"},
			},
		},
		"sort": []map[string]interface{}{
			{"createdAt": map[string]string{"order": "desc"}},
		},
	}

	if err := json.NewEncoder(&buf).Encode(q); err != nil {
		return nil, fmt.Errorf("erreur encodage requête: %v", err)
	}

	req := esapi.SearchRequest{
		Index: []string{ordersIndex},
		Body:  &buf,
	}
	res, err := req.Do(ctx, database.Elastic)
	if err != nil {
		return nil, fmt.Errorf("erreur requête Elastic: %v", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		var e map[string]interface{}
		json.NewDecoder(res.Body).Decode(&e)
		log.Printf("❌ Elasticsearch erreur: %+v", e)
		return nil, errors.New("index non trouvé ou vide")
	}

	var r struct {
		Hits struct {
			Hits []struct {
				Source map[string]interface{} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("erreur décodage réponse: %v", err)
	}

	results := make([]map[string]interface{}, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		results = append(results, h.Source)
	}
	return results, nil
}

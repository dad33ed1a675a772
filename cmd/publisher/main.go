package main

import (
	"encoding/json"
	"log"
	"os"

	stan "github.com/nats-io/stan.go"

	"github.com/example/orders-service/internal/adapter/refdata"
	"github.com/example/orders-service/internal/domain"
	"github.com/example/orders-service/internal/engine"
)

// Reads an order payload from stdin, validates it against the default
// reference data and publishes it to NATS Streaming.
func main() {
	clusterID := getenv("STAN_CLUSTER_ID", "orders-cluster")
	clientID := getenv("STAN_PUB_ID", "orders-publisher")
	natsURL := getenv("NATS_URL", "nats://localhost:4222")
	subject := getenv("STAN_SUBJECT", "orders")

	var draft domain.OrderDraft
	dec := json.NewDecoder(os.Stdin)
	if err := dec.Decode(&draft); err != nil {
		log.Fatalf("read json from stdin: %v", err)
	}

	ref := refdata.Defaults()
	if _, verrs := engine.ValidateAndPrice(draft, ref, ref); verrs != nil {
		for _, fe := range verrs {
			log.Printf("invalid payload: %s: %s", fe.Field, fe.Kind)
		}
		os.Exit(1)
	}

	b, err := json.Marshal(draft)
	if err != nil {
		log.Fatalf("marshal: %v", err)
	}

	sc, err := stan.Connect(clusterID, clientID, stan.NatsURL(natsURL))
	if err != nil {
		log.Fatalf("stan connect: %v", err)
	}
	defer sc.Close()

	if err := sc.Publish(subject, b); err != nil {
		log.Fatalf("publish: %v", err)
	}
	log.Printf("published %d bytes to %s", len(b), subject)
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

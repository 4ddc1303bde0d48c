package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	orderreaderv1 "github.com/tradekit/clob/internal/domain/order-reader/v1"
)

// generateRequests creates a realistic request stream: mostly adds, with
// amends and pulls aimed at orders that are still likely to rest. Targets
// that already traded away are fine, the engine rejects and moves on.
func generateRequests(count int, symbol string, basePrice, priceSpread int64) []orderreaderv1.OrderRequest {
	requests := make([]orderreaderv1.OrderRequest, 0, count)

	var nextID uint64
	var liveIDs []uint64

	for i := 0; i < count; i++ {
		roll := rand.IntN(10)

		switch {
		case roll < 7 || len(liveIDs) == 0:
			nextID++
			side := "buy"
			price := basePrice - rand.Int64N(priceSpread)
			if rand.IntN(2) == 0 {
				side = "sell"
				price = basePrice + rand.Int64N(priceSpread)
			}
			if price <= 0 {
				price = basePrice
			}

			requests = append(requests, orderreaderv1.OrderRequest{
				Action:  orderreaderv1.ActionAdd,
				OrderID: nextID,
				Symbol:  symbol,
				Side:    side,
				Price:   price,
				Volume:  rand.Int64N(20) + 1,
			})
			liveIDs = append(liveIDs, nextID)

		case roll < 9:
			target := liveIDs[rand.IntN(len(liveIDs))]
			newPrice := basePrice - priceSpread + rand.Int64N(2*priceSpread)
			if newPrice <= 0 {
				newPrice = basePrice
			}

			requests = append(requests, orderreaderv1.OrderRequest{
				Action:    orderreaderv1.ActionAmend,
				OrderID:   target,
				NewPrice:  newPrice,
				NewVolume: rand.Int64N(20) + 1,
			})

		default:
			idx := rand.IntN(len(liveIDs))
			target := liveIDs[idx]
			liveIDs = append(liveIDs[:idx], liveIDs[idx+1:]...)

			requests = append(requests, orderreaderv1.OrderRequest{
				Action:  orderreaderv1.ActionPull,
				OrderID: target,
			})
		}
	}

	return requests
}

func main() {
	var (
		brokers     = flag.String("brokers", "localhost:9092", "Kafka broker addresses (comma-separated)")
		topic       = flag.String("topic", "orders", "Kafka topic name")
		symbol      = flag.String("symbol", "BTC-USD", "Symbol for generated orders")
		file        = flag.String("file", "", "JSON file with order requests (optional, generates requests if not provided)")
		delay       = flag.Duration("delay", 100*time.Millisecond, "Delay between sending requests")
		count       = flag.Int("count", 1000, "Number of requests to generate")
		basePrice   = flag.Int64("base-price", 50_000, "Base price for generated orders")
		priceSpread = flag.Int64("price-spread", 200, "Price spread around the base price")
	)
	flag.Parse()

	writer := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(*brokers, ",")...),
		Topic:        *topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}
	defer writer.Close()

	ctx := context.Background()

	var requests []orderreaderv1.OrderRequest
	if *file != "" {
		data, err := os.ReadFile(*file)
		if err != nil {
			log.Fatalf("Failed to read file %s: %v", *file, err)
		}
		if err := json.Unmarshal(data, &requests); err != nil {
			log.Fatalf("Failed to parse JSON from file: %v", err)
		}
		log.Printf("Loaded %d requests from file: %s", len(requests), *file)
	} else {
		log.Printf("Generating %d requests...", *count)
		requests = generateRequests(*count, *symbol, *basePrice, *priceSpread)
	}

	log.Printf("Sending requests to Kafka broker: %s, topic: %s", *brokers, *topic)
	log.Printf("Delay between requests: %v", *delay)

	for i := range requests {
		req := &requests[i]

		msg := kafka.Message{
			Key:   []byte(*symbol),
			Value: req.ToBytes(),
			Time:  time.Now(),
		}

		if err := writer.WriteMessages(ctx, msg); err != nil {
			log.Printf("Failed to send request %d (order %d): %v", i+1, req.OrderID, err)
			continue
		}

		if (i+1)%100 == 0 || i == len(requests)-1 {
			switch req.Action {
			case orderreaderv1.ActionAdd:
				log.Printf("Sent %d/%d: add order %d | %s %s | %d @ %d",
					i+1, len(requests), req.OrderID, req.Symbol, req.Side, req.Volume, req.Price)
			case orderreaderv1.ActionAmend:
				log.Printf("Sent %d/%d: amend order %d | %d @ %d",
					i+1, len(requests), req.OrderID, req.NewVolume, req.NewPrice)
			default:
				log.Printf("Sent %d/%d: pull order %d", i+1, len(requests), req.OrderID)
			}
		}

		if i < len(requests)-1 {
			time.Sleep(*delay)
		}
	}

	log.Printf("Successfully sent all %d requests!", len(requests))

	adds := 0
	amends := 0
	pulls := 0
	buys := 0
	sells := 0

	for i := range requests {
		switch requests[i].Action {
		case orderreaderv1.ActionAdd:
			adds++
			if requests[i].Side == "buy" {
				buys++
			} else {
				sells++
			}
		case orderreaderv1.ActionAmend:
			amends++
		default:
			pulls++
		}
	}

	log.Printf("--- Summary ---")
	log.Printf("Total Requests: %d", len(requests))
	log.Printf("Adds: %d (%d buys, %d sells)", adds, buys, sells)
	log.Printf("Amends: %d", amends)
	log.Printf("Pulls: %d", pulls)
}

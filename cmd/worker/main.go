package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/vendora/stock-ledger/internal/config"
	"github.com/vendora/stock-ledger/internal/events"
	"github.com/vendora/stock-ledger/internal/inventory"
	kafkax "github.com/vendora/stock-ledger/internal/kafka"
	"github.com/vendora/stock-ledger/internal/orders"
	"github.com/vendora/stock-ledger/internal/postgres"
	"github.com/vendora/stock-ledger/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PGMaxConns)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	pOK := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicStockReserved, 1024)
	pOK.Start(ctx)
	pRJ := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicStockRejected, 1024)
	pRJ.Start(ctx)

	svc := &inventory.Service{
		Repo:           &orders.HoldRepo{DB: db},
		Dedup:          &redisx.Dedup{Client: rdb, Service: "inventory"},
		ProducerOK:     pOK,
		ProducerReject: pRJ,
		ServiceName:    cfg.ServiceName + "-worker",
	}

	group := getenv("RESERVATION_GROUP", "stock-ledger-worker")
	workers := atoi(getenv("RESERVATION_WORKERS", "8"))
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, events.TopicOrderCreated, workers)

	go func() {
		log.Printf("reservation consumer started: group=%s topic=%s workers=%d",
			group, events.TopicOrderCreated, workers)
		if err := cons.Start(ctx, svc.HandleOrderCreated); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down consumer...")
	cancel()
	time.Sleep(500 * time.Millisecond)
	pOK.Close()
	pRJ.Close()
	pOK.WaitClosed()
	pRJ.WaitClosed()
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func atoi(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil || i <= 0 {
		return 1
	}
	return i
}

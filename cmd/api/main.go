package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/vendora/stock-ledger/internal/config"
	"github.com/vendora/stock-ledger/internal/consignment"
	"github.com/vendora/stock-ledger/internal/events"
	"github.com/vendora/stock-ledger/internal/httpx"
	kafkax "github.com/vendora/stock-ledger/internal/kafka"
	"github.com/vendora/stock-ledger/internal/ledger"
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
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	pMove := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicStockMovement, 1024)
	pMove.Start(ctx)
	pOrder := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicOrderCreated, 1024)
	pOrder.Start(ctx)

	router := httpx.NewRouter()
	sh := &httpx.StockHandler{
		Service:     &ledger.Repo{DB: db},
		Movements:   pMove,
		Redis:       rdb,
		ServiceName: cfg.ServiceName,
	}
	sh.Register(router)
	ch := &httpx.ConsignmentHandler{Service: &consignment.Repo{DB: db}}
	ch.Register(router)
	oh := &httpx.OrdersHandler{
		Repo:     &orders.Repo{DB: db},
		Holds:    &orders.HoldRepo{DB: db},
		Producer: pOrder,
		Redis:    rdb,
		Service:  cfg.ServiceName,
	}
	oh.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	// flush producers before exiting
	pMove.Close()
	pOrder.Close()
	pMove.WaitClosed()
	pOrder.WaitClosed()
}

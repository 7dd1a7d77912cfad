package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/binarymachines/bxlogic/internal/config"
	"github.com/binarymachines/bxlogic/internal/db"
	"github.com/binarymachines/bxlogic/internal/httpapi"
	"github.com/binarymachines/bxlogic/internal/metrics"
	"github.com/binarymachines/bxlogic/internal/sms"
	"github.com/binarymachines/bxlogic/internal/store/rabbitmq"
	"github.com/binarymachines/bxlogic/internal/store/redisstore"
)

func newSender(cfg config.Config) sms.Sender {
	if cfg.TwilioAccountSID == "" {
		log.Printf("TWILIO_ACCOUNT_SID not set, outbound SMS will be captured in memory")
		return sms.NewMemorySender()
	}
	sender, err := sms.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)
	if err != nil {
		log.Fatalf("twilio sender: %v", err)
	}
	return sender
}

func main() {
	cfg := config.Load()

	gdb := db.Connect(cfg.DBDSN)

	rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer rds.Close()
	if err := rds.Ping(context.Background()); err != nil {
		log.Fatalf("redis ping: %v", err)
	}

	pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		log.Fatalf("rabbit publisher: %v", err)
	}
	defer pub.Close()

	reg := prometheus.NewRegistry()
	stats := metrics.NewCollector(reg)

	router := httpapi.NewRouter(gdb, cfg, rds, newSender(cfg), pub, stats, reg)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("listener started, addr=%s queue=%s", cfg.HTTPAddr, cfg.RabbitQueue)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("listener shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

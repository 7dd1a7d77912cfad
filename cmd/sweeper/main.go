package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/binarymachines/bxlogic/internal/bidding"
	"github.com/binarymachines/bxlogic/internal/config"
	"github.com/binarymachines/bxlogic/internal/db"
	"github.com/binarymachines/bxlogic/internal/metrics"
	"github.com/binarymachines/bxlogic/internal/sms"
	"github.com/binarymachines/bxlogic/internal/store/rabbitmq"
	"github.com/binarymachines/bxlogic/internal/sweep"
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
	repo := bidding.NewRepo(gdb)
	sender := newSender(cfg)
	svc := bidding.NewService(gdb, repo, sender)
	stats := metrics.NewCollector(nil)

	arbiter := bidding.NewUniformArbiter(rand.NewSource(time.Now().UnixNano()))
	sweeper := sweep.New(svc, arbiter, stats, time.Duration(cfg.SweepIntervalSeconds)*time.Second)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("rabbit dial: %v", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("rabbit channel: %v", err)
	}
	defer ch.Close()

	if err := rabbitmq.DeclareTopology(ch, cfg.RabbitQueue); err != nil {
		log.Fatalf("queue declare: %v", err)
	}

	concurrency := cfg.WorkerConcurrency
	if err := ch.Qos(concurrency, 0, false); err != nil {
		log.Fatalf("qos: %v", err)
	}

	msgs, err := ch.Consume(cfg.RabbitQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("sweeper started, queue=%s concurrency=%d interval=%ds",
		cfg.RabbitQueue, concurrency, cfg.SweepIntervalSeconds)

	go func() {
		if err := sweeper.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("sweep loop stopped: %v", err)
		}
	}()

	// worker pool for broadcast notices
	jobs := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				var m rabbitmq.JobPostedMessage
				if err := json.Unmarshal(d.Body, &m); err != nil || m.JobTag == "" {
					log.Printf("worker=%d bad message: %v", workerID, err)
					_ = d.Nack(false, false)
					continue
				}

				if err := broadcastJob(ctx, repo, sender, stats, m.JobTag); err != nil {
					log.Printf("worker=%d broadcast %s failed: %v", workerID, m.JobTag, err)
					_ = d.Nack(false, false)
					continue
				}

				if err := d.Ack(false); err != nil {
					log.Printf("worker=%d ack failed tag=%s err=%v", workerID, m.JobTag, err)
				}
			}
		}(i)
	}

	// dispatcher
	for {
		select {
		case <-ctx.Done():
			log.Printf("sweeper shutting down")
			close(jobs)
			wg.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				log.Printf("delivery channel closed")
				time.Sleep(1 * time.Second)
				continue
			}
			jobs <- d
		}
	}
}

// broadcastJob texts every on-duty courier that a new job is open for
// bidding. A failed send to one courier does not block the rest.
func broadcastJob(ctx context.Context, repo *bidding.Repo, sender sms.Sender, stats *metrics.Collector, tag string) error {
	job, err := repo.JobByTag(ctx, tag)
	if err != nil {
		return err
	}

	couriers, err := repo.CouriersByDuty(ctx, bidding.DutyOn)
	if err != nil {
		return err
	}

	body := strings.Join([]string{
		"New delivery job posted:",
		fmt.Sprintf("pickup: %s, %s %s", job.PickupAddress, job.PickupBorough, job.PickupZip),
		fmt.Sprintf("deliver: %s, %s %s", job.DeliveryAddress, job.DeliveryBorough, job.DeliveryZip),
		fmt.Sprintf("Text \"%s bid\" to bid on it.", job.JobTag),
	}, "\n")

	for _, courier := range couriers {
		if _, err := sender.Send(ctx, courier.MobileNumber, body); err != nil {
			log.Printf("broadcast %s: sms to courier %d failed: %v", tag, courier.ID, err)
			continue
		}
		stats.SMSSent()
	}

	log.Printf("broadcast %s sent to %d courier(s)", tag, len(couriers))
	return nil
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/verisend/verisend"
	"github.com/verisend/verisend/bolt"
	"github.com/verisend/verisend/compliance"
	"github.com/verisend/verisend/http"
	"github.com/verisend/verisend/probeclient"
	"github.com/verisend/verisend/rabbitmq"
	"github.com/verisend/verisend/smtp"
	"github.com/verisend/verisend/sqlite"
	"github.com/verisend/verisend/verify"
)

func main() {
	viper.SetConfigName("config")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}

	viper.SetDefault("http.addr", ":8080")
	viper.SetDefault("compliance.dailylimit", 1000)
	viper.SetDefault("compliance.probe.timeoutms", 5000)

	var config *verisend.Config
	if err := viper.Unmarshal(&config); err != nil {
		log.Fatal(err)
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn: config.Sentry.DSN,
	}); err != nil {
		log.Fatalf("sentry.Init: %v", err)
	}
	defer sentry.Flush(2 * time.Second)

	a := newApp(config)

	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		<-c
		cancel()
	}()

	if err := a.Run(ctx); err != nil {
		_ = a.Close()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	<-ctx.Done()

	if err := a.Close(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type app struct {
	config     *verisend.Config
	db         verisend.Database
	httpServer *http.Server
	cron       *cron.Cron
	queue      *rabbitmq.QueueService
}

func newApp(config *verisend.Config) *app {
	httpServer, err := http.NewServer()
	if err != nil {
		log.Fatalf("%+v\n", err)
	}

	a := &app{
		config:     config,
		httpServer: httpServer,
	}

	switch config.DB.Type {
	case "sqlite":
		a.db = sqlite.NewDB(config.DB.Path)
	default:
		a.db = bolt.NewDB(config.DB.Path)
	}

	return a
}

func (a *app) Run(ctx context.Context) error {
	if err := a.db.Open(); err != nil {
		return err
	}

	var store verisend.SubscriberService
	switch db := a.db.(type) {
	case *sqlite.DB:
		store = sqlite.NewSubscriberService(db)
	case *bolt.DB:
		store = bolt.NewSubscriberService(db)
	}

	a.httpServer.Addr = a.config.HTTP.Addr

	if err := a.httpServer.Open(); err != nil {
		return err
	}

	logger := zerolog.New(os.Stdout).With().
		Timestamp().
		Logger()

	mailer := smtp.NewMailService(a.config)
	prober := probeclient.New(time.Duration(a.config.Compliance.Probe.TimeoutMs) * time.Millisecond)
	signer := verify.NewHMACSigner(a.config.Compliance.Signing.Secret)
	svc := compliance.NewService(store, prober, signer, mailer, logger, a.config.Compliance.DailyLimit)

	a.httpServer.Compliance = svc
	a.httpServer.SubscriberService = store
	a.httpServer.MailService = mailer

	if spec := a.config.Compliance.Probe.Cron.Spec; spec != "" {
		a.cron = cron.New()
		if _, err := a.cron.AddFunc(spec, func() {
			svc.ProbeHeartbeat(ctx)
		}); err != nil {
			return err
		}
		a.cron.Start()
	}

	if a.config.AMQP.URL != "" {
		queue, err := rabbitmq.NewQueueService(a.config.AMQP.URL)
		if err != nil {
			return err
		}
		a.queue = queue

		jobs, err := queue.Consume(ctx, a.config.AMQP.Topic)
		if err != nil {
			return err
		}

		go func() {
			for payload := range jobs {
				var job verisend.BroadcastJob
				if err := json.Unmarshal(payload, &job); err != nil {
					logger.Error().Err(err).Msg("Cannot decode broadcast job")
					continue
				}

				if _, err := svc.Broadcast(ctx, job.Subject, job.Body); err != nil {
					logger.Error().Err(err).Str("subject", job.Subject).Msg("Broadcast failed")
					sentry.CaptureException(err)
				}
			}
		}()
	}

	return nil
}

func (a *app) Close() error {
	if a.cron != nil {
		a.cron.Stop()
	}

	if a.queue != nil {
		_ = a.queue.Close()
	}

	if a.httpServer != nil {
		if err := a.httpServer.Close(); err != nil {
			return err
		}
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			return err
		}
	}

	return nil
}

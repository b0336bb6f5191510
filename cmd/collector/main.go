package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Bezalel011/Smartcare/config"
	"github.com/Bezalel011/Smartcare/internal/daemon"
	"github.com/Bezalel011/Smartcare/pipeline"
	"github.com/Bezalel011/Smartcare/store"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	msgsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smartcare_collector_messages_received_total",
		Help: "Total number of MQTT messages received by collector.",
	})
	rowsStored = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smartcare_collector_rows_stored_total",
		Help: "Total number of rows upserted from MQTT messages.",
	}, []string{"kind"})
	msgsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smartcare_collector_messages_failed_total",
		Help: "Total number of messages rejected or failed to store.",
	})
)

type collector struct {
	store ingestStore
	pub   pipeline.Publisher
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	dbPool, err := daemon.ConnectDB(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer dbPool.Close()

	redisClient := daemon.ConnectRedis(ctx, cfg.Redis)
	if redisClient != nil {
		defer redisClient.Close()
	}

	go daemon.ServeHTTP(cfg.MetricsAddr)

	c := &collector{store: store.NewPostgres(dbPool), pub: pipeline.RedisPublisher(redisClient)}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.MQTT.URL)
	opts.SetClientID("smartcare-collector-" + time.Now().Format("20060102150405"))
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetDefaultPublishHandler(func(client mqtt.Client, message mqtt.Message) {
		c.processMessage(ctx, message.Topic(), message.Payload())
	})
	opts.OnConnect = func(client mqtt.Client) {
		token := client.Subscribe(cfg.MQTT.Topic, 1, nil)
		token.Wait()
		if token.Error() != nil {
			log.Printf("mqtt subscribe error: %v", token.Error())
			return
		}
		log.Printf("collector subscribed to topic=%s", cfg.MQTT.Topic)
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		log.Printf("mqtt connection lost: %v", err)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	token.Wait()
	if token.Error() != nil {
		log.Fatalf("mqtt connection failed: %v", token.Error())
	}

	log.Printf("collector running, mqtt=%s db=ok metrics=%s", cfg.MQTT.URL, cfg.MetricsAddr)

	<-ctx.Done()
	log.Printf("collector shutting down")
	client.Disconnect(250)
}

func (c *collector) processMessage(ctx context.Context, topic string, payloadRaw []byte) {
	msgsReceived.Inc()

	facilityID, kind, err := parseTopic(topic)
	if err != nil {
		msgsFailed.Inc()
		log.Printf("rejected message: %v", err)
		return
	}

	n, err := ingest(ctx, c.store, facilityID, kind, payloadRaw)
	rowsStored.WithLabelValues(kind).Add(float64(n))
	if err != nil {
		msgsFailed.Inc()
		log.Printf("ingest failed: facility=%s kind=%s err=%v", facilityID, kind, err)
		return
	}

	live, err := json.Marshal(LiveMessage{FacilityID: facilityID, Kind: kind, Data: payloadRaw})
	if err != nil {
		return
	}
	if err := c.pub.Publish(ctx, pipeline.LiveChannel, live); err != nil {
		log.Printf("redis publish failed for channel=%s: %v", pipeline.LiveChannel, err)
	}
}

//go:build integration

package main_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/stayhub/service-rental/internal/adapter"
	"github.com/stayhub/service-rental/internal/application"
	"github.com/stayhub/service-rental/internal/common/kafka"
	"github.com/stayhub/service-rental/internal/domain/property"
	"github.com/stayhub/service-rental/internal/domain/user"
	"github.com/stayhub/service-rental/internal/events"
	"github.com/stayhub/service-rental/internal/repository"
)

const (
	testWebhookSecret = "whsec_integration"
	testTopic         = "booking.events"
)

// setupPostgres starts a PostgreSQL container and returns a migrated GORM DB.
func setupPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test_rental",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	})

	pgHost, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=test password=test dbname=test_rental sslmode=disable", pgHost, pgPort.Port())

	// Poll until GORM can actually connect and ping.
	var db *gorm.DB
	require.Eventually(t, func() bool {
		var err error
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
		if err != nil {
			return false
		}
		sqlDB, err := db.DB()
		if err != nil {
			return false
		}
		return sqlDB.Ping() == nil
	}, 30*time.Second, 1*time.Second, "PostgreSQL not ready for connections")

	require.NoError(t, db.AutoMigrate(repository.Models()...))
	return db
}

// setupKafka starts a Kafka container with the booking topic created.
func setupKafka(t *testing.T) []string {
	t.Helper()
	ctx := context.Background()

	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")
	t.Cleanup(func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
	})

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")
	createTopics(t, brokers, testTopic)
	return brokers
}

// rentalStack holds wired-up services backed by real repositories and the mock gateway.
type rentalStack struct {
	Bookings *application.BookingService
	Webhooks *application.WebhookService
	Gateway  *adapter.MockStripeAdapter
	Users    *repository.GormUserRepository
	Props    *repository.GormPropertyRepository
}

func setupRentalStack(t *testing.T, db *gorm.DB, publisher events.Publisher) *rentalStack {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	bookingRepo := repository.NewBookingRepository(db)
	propertyRepo := repository.NewGormPropertyRepository(db)
	userRepo := repository.NewGormUserRepository(db)
	gateway := adapter.NewMockStripeAdapter(testWebhookSecret, logger)

	return &rentalStack{
		Bookings: application.NewBookingService(bookingRepo, propertyRepo, userRepo, gateway, publisher,
			application.BookingOptions{Currency: "inr", GatewayTimeout: 5 * time.Second}, logger),
		Webhooks: application.NewWebhookService(bookingRepo, gateway, publisher, logger),
		Gateway:  gateway,
		Users:    userRepo,
		Props:    propertyRepo,
	}
}

// seedGuestAndProperty inserts a user and a listing priced at pricePerNight.
func seedGuestAndProperty(t *testing.T, stack *rentalStack, pricePerNight float64) (*user.User, *property.Property) {
	t.Helper()
	ctx := context.Background()

	suffix := uuid.NewString()[:8]
	guest, err := user.NewUser("Guest "+suffix, "guest-"+suffix+"@example.com", "hash", "")
	require.NoError(t, err)
	require.NoError(t, stack.Users.Save(ctx, guest))

	prop, err := property.NewProperty(guest.ID(), property.Details{Name: "Loft", City: "Goa", Capacity: 4}, property.Location{}, pricePerNight)
	require.NoError(t, err)
	require.NoError(t, stack.Props.Save(ctx, prop))
	return guest, prop
}

// signWebhook builds a provider payment event and its signature header.
func signWebhook(kind, intentID string) ([]byte, string) {
	payload := []byte(fmt.Sprintf(
		`{"id":"evt_%s","object":"event","type":%q,"data":{"object":{"id":%q,"object":"payment_intent"}}}`,
		uuid.NewString()[:8], kind, intentID))
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return payload, fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

// consumeOneEvent reads from a Kafka topic until it finds an event of the expected type.
func consumeOneEvent(t *testing.T, brokers []string, topic, expectedType string, timeout time.Duration) kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	groupID := fmt.Sprintf("test-assert-%s", uuid.New().String()[:8])
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	defer func() { _ = reader.Close() }()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.Fatalf("timed out waiting for event type %q on topic %q", expectedType, topic)
			}
			continue
		}
		ce, err := kafka.ParseCloudEvent(msg.Value)
		if err != nil {
			continue
		}
		if ce.Type == expectedType {
			return ce
		}
	}
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	require.NoError(t, controllerConn.CreateTopics(topicConfigs...), "failed to create Kafka topics")

	// Give Kafka a moment to propagate topic metadata.
	time.Sleep(1 * time.Second)
}

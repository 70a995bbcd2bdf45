package queue

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xavierca1/ligue-leads/internal/usecase"
)

func TestProducerUsesPublishChannel(t *testing.T) {
	r := &RabbitMQ{Ch: new(amqp.Channel), Pub: new(amqp.Channel)}

	p := r.Producer()
	assert.Same(t, r.Pub, p.Ch)
	assert.NotSame(t, r.Ch, p.Ch)
}

func setupRabbitMQ(t *testing.T) *RabbitMQ {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("skipping integration test: TEST_INTEGRATION not set")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "docker.io/rabbitmq:4-alpine",
			ExposedPorts: []string{"5672/tcp"},
			WaitingFor:   wait.ForListeningPort("5672/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	endpoint, err := container.PortEndpoint(ctx, "5672/tcp", "amqp")
	require.NoError(t, err)

	var r *RabbitMQ
	require.Eventually(t, func() bool {
		r, err = NewRabbitMQ(endpoint)
		return err == nil
	}, 30*time.Second, 500*time.Millisecond)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRabbitMQPublishesOnSeparateChannel(t *testing.T) {
	r := setupRabbitMQ(t)
	require.NotSame(t, r.Ch, r.Pub)

	deliveries, err := r.Ch.Consume(QueueName, "", false, false, false, false, nil)
	require.NoError(t, err)

	doc := sampleDoc()
	require.NoError(t, r.Producer().Archive(context.Background(), doc))

	select {
	case d := <-deliveries:
		var got usecase.ArchiveDocument
		require.NoError(t, json.Unmarshal(d.Body, &got))
		assert.Equal(t, doc.Lead.LeadID, got.Lead.LeadID)
		assert.Equal(t, "application/json", d.ContentType)
		require.NoError(t, d.Ack(false))
	case <-time.After(10 * time.Second):
		t.Fatal("no delivery on the consumer channel")
	}

	require.NoError(t, r.Close())
	assert.True(t, r.Pub.IsClosed())
	assert.True(t, r.Ch.IsClosed())
}

package fixture

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Probe reports whether the server at uri accepts commands.
type Probe func(ctx context.Context, uri string) error

const probeAttemptTimeout = 500 * time.Millisecond

// PingProbe connects directly to uri and pings the primary.
func PingProbe(ctx context.Context, uri string) error {
	opts := options.Client().
		ApplyURI(uri).
		SetDirect(true).
		SetConnectTimeout(probeAttemptTimeout).
		SetServerSelectionTimeout(probeAttemptTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Disconnect(context.Background())
	}()

	return client.Ping(ctx, readpref.Primary())
}

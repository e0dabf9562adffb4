package indexerclient

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// GRPCClient reaches a remote indexer over a streaming gRPC call.
// Dial pattern mirrors mint/rpc/client.go in the teacher.
type GRPCClient struct {
	conn *grpc.ClientConn
}

func Dial(address string) (*GRPCClient, error) {
	conn, err := grpc.Dial(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("indexerclient: dial %s: %w", address, err)
	}
	return &GRPCClient{conn: conn}, nil
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

// Observe's wire contract belongs to the indexer service and is out
// of this module's scope; this is a placeholder for the generated
// streaming stub a production build would call.
func (c *GRPCClient) Observe(ctx context.Context, afterCursor string, onEvent func(Event) error) error {
	return fmt.Errorf("indexerclient: Observe requires a wired indexer RPC stub")
}

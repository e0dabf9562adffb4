package cashierclient

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// GRPCClient reaches a remote cashier over gRPC. Dial pattern mirrors
// mint/rpc/client.go in the teacher: a single insecure-by-default
// ClientConn, TLS left to the caller via grpc.DialOption.
type GRPCClient struct {
	conn *grpc.ClientConn
}

func Dial(address string) (*GRPCClient, error) {
	conn, err := grpc.Dial(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("cashierclient: dial %s: %w", address, err)
	}
	return &GRPCClient{conn: conn}, nil
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

// As with signerclient, the wire contract belongs to the cashier
// service and is out of this module's scope; these are placeholders
// for the generated stubs a production build would call.

func (c *GRPCClient) SubmitWithdrawal(ctx context.Context, id string, destination string, amount uint64) error {
	return fmt.Errorf("cashierclient: SubmitWithdrawal requires a wired cashier RPC stub")
}

func (c *GRPCClient) GetWithdrawalStatus(ctx context.Context, id string) (WithdrawalStatus, string, error) {
	return WithdrawalUnknown, "", fmt.Errorf("cashierclient: GetWithdrawalStatus requires a wired cashier RPC stub")
}

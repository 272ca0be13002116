package couchbase

import (
	"context"
	"fmt"

	"github.com/couchbase/gocb/v2"

	"stealthcompany.com/medadmin/internal/dal"
)

// Client is the Couchbase implementation of dal.Backend. Doctors are keyed
// by doctorid, patients and appointments by their primary id.
type Client struct {
	connManager *ConnectionManager
	docManager  *DocumentManager
	locker      *DatabaseLocker
}

var _ dal.Backend = (*Client)(nil)

// NewClient connects to Couchbase and wires the document manager and locker
func NewClient(cfg ConnectionConfig) (*Client, error) {
	connManager, err := NewConnectionManager(cfg)
	if err != nil {
		return nil, err
	}

	return &Client{
		connManager: connManager,
		docManager:  NewDocumentManager(connManager.GetScope()),
		locker:      NewDatabaseLocker(connManager.GetBucket().DefaultCollection()),
	}, nil
}

// Close closes the Couchbase connection
func (c *Client) Close(ctx context.Context) error {
	return c.connManager.Close()
}

// Locker returns the seed lock
func (c *Client) Locker() dal.Locker {
	return c.locker
}

// Ping checks that the key-value and query services answer
func (c *Client) Ping(ctx context.Context) error {
	report, err := c.connManager.GetBucket().Ping(&gocb.PingOptions{
		ServiceTypes: []gocb.ServiceType{gocb.ServiceTypeKeyValue, gocb.ServiceTypeQuery},
		Context:      ctx,
	})
	if err != nil {
		return fmt.Errorf("ping bucket: %w", err)
	}
	for service, endpoints := range report.Services {
		for _, endpoint := range endpoints {
			if endpoint.State != gocb.PingStateOk {
				return fmt.Errorf("service %v endpoint %s is %s", service, endpoint.Remote, pingStateName(endpoint.State))
			}
		}
	}
	return nil
}

// pingStateName names a ping state for logs and errors
func pingStateName(state gocb.PingState) string {
	switch state {
	case gocb.PingStateOk:
		return "ok"
	case gocb.PingStateTimeout:
		return "timeout"
	case gocb.PingStateError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", state)
	}
}

package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Start requests the daemon to start the sorting loop.
func (c *Client) Start() (*StartResponse, error) {
	var resp StartResponse
	if err := c.client.Call("Cardsort.Start", StartRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests the daemon to stop the sorting loop.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Cardsort.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Cardsort.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RunOnce runs a single sort cycle and returns its outcome.
func (c *Client) RunOnce() (*RunOnceResponse, error) {
	var resp RunOnceResponse
	if err := c.client.Call("Cardsort.RunOnce", RunOnceRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetMode switches the routing mode.
func (c *Client) SetMode(mode string) (*SetModeResponse, error) {
	var resp SetModeResponse
	if err := c.client.Call("Cardsort.SetMode", SetModeRequest{Mode: mode}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetThreshold updates the price threshold.
func (c *Client) SetThreshold(thresholdUSD float64) (*SetThresholdResponse, error) {
	var resp SetThresholdResponse
	if err := c.client.Call("Cardsort.SetThreshold", SetThresholdRequest{ThresholdUSD: thresholdUSD}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetSources reorders the price providers.
func (c *Client) SetSources(primary, fallback string) (*SetSourcesResponse, error) {
	var resp SetSourcesResponse
	req := SetSourcesRequest{Primary: primary, Fallback: fallback}
	if err := c.client.Call("Cardsort.SetSources", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetBin enables or disables a bin.
func (c *Client) SetBin(bin string, enabled bool) (*SetBinResponse, error) {
	var resp SetBinResponse
	req := SetBinRequest{Bin: bin, Enabled: enabled}
	if err := c.client.Call("Cardsort.SetBin", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestBin cycles a bin's gate without a card.
func (c *Client) TestBin(bin string) (*TestBinResponse, error) {
	var resp TestBinResponse
	if err := c.client.Call("Cardsort.TestBin", TestBinRequest{Bin: bin}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// History returns the newest sort records.
func (c *Client) History(limit int) (*HistoryResponse, error) {
	var resp HistoryResponse
	if err := c.client.Call("Cardsort.History", HistoryRequest{Limit: limit}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// HistoryClear removes all sort records.
func (c *Client) HistoryClear() (*HistoryClearResponse, error) {
	var resp HistoryClearResponse
	if err := c.client.Call("Cardsort.HistoryClear", HistoryClearRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Counts returns session and lifetime totals per bin.
func (c *Client) Counts() (*CountsResponse, error) {
	var resp CountsResponse
	if err := c.client.Call("Cardsort.Counts", CountsRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.client.Call("Cardsort.TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

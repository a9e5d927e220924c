package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"

	"video2audio/internal/settings"
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

func (c *Client) call(method string, req, resp any) error {
	return c.client.Call(ServiceName+"."+method, req, resp)
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.call("Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Shutdown asks the daemon process to exit.
func (c *Client) Shutdown() (*ShutdownResponse, error) {
	var resp ShutdownResponse
	if err := c.call("Shutdown", ShutdownRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListIncoming returns uploaded files awaiting conversion.
func (c *Client) ListIncoming() (*ListResponse, error) {
	var resp ListResponse
	if err := c.call("ListIncoming", ListRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListOutgoing returns converted files.
func (c *Client) ListOutgoing() (*ListResponse, error) {
	var resp ListResponse
	if err := c.call("ListOutgoing", ListRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Upload copies local files into the incoming area.
func (c *Client) Upload(paths []string) (*UploadResponse, error) {
	var resp UploadResponse
	if err := c.call("Upload", UploadRequest{Paths: paths}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Settings returns the current encoding settings.
func (c *Client) Settings() (*SettingsResponse, error) {
	var resp SettingsResponse
	if err := c.call("GetSettings", SettingsRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ApplySettings replaces the encoding settings.
func (c *Client) ApplySettings(s settings.Settings) (*SettingsResponse, error) {
	var resp SettingsResponse
	if err := c.call("ApplySettings", ApplySettingsRequest{Settings: s}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Process converts files. Without detach the call returns the finished batch.
func (c *Client) Process(files []string, detach bool) (*BatchResponse, error) {
	var resp BatchResponse
	if err := c.call("Process", ProcessRequest{Files: files, Detach: detach}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Batch fetches one batch, optionally waiting for completion.
func (c *Client) Batch(id string, wait bool) (*BatchResponse, error) {
	var resp BatchResponse
	if err := c.call("Batch", BatchRequest{ID: id, Wait: wait}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Batches lists remembered batches.
func (c *Client) Batches() (*BatchListResponse, error) {
	var resp BatchListResponse
	if err := c.call("Batches", BatchListRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ClearIncoming deletes the named uploads.
func (c *Client) ClearIncoming(files []string) (*ClearResponse, error) {
	var resp ClearResponse
	if err := c.call("ClearIncoming", ClearRequest{Files: files}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ClearOutgoing deletes every converted file.
func (c *Client) ClearOutgoing() (*ClearResponse, error) {
	var resp ClearResponse
	if err := c.call("ClearOutgoing", ClearRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogTail returns log lines from the daemon.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.call("LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Package supervisor wraps the system service manager. steward never runs
// the managed service itself; it only asks the service manager to start or
// stop it and observes liveness.
package supervisor

import (
	"errors"
	"fmt"

	"github.com/kardianos/service"
)

// Supervisor is the process-supervisor collaborator consumed by the update
// orchestrator and the manual restore path. All calls are synchronous and
// potentially slow; none are cancellable.
type Supervisor interface {
	Start() error
	Stop() error
	IsActive() (bool, error)
	Status() (string, error)
}

// Client controls one named system service.
type Client struct {
	name string
	svc  service.Service
}

// noopProgram satisfies service.Interface. The client only controls an
// already-installed service, it never runs as one.
type noopProgram struct{}

func (noopProgram) Start(service.Service) error { return nil }
func (noopProgram) Stop(service.Service) error  { return nil }

// NewClient binds a client to the system service with the given name.
func NewClient(serviceName string) (*Client, error) {
	cfg := &service.Config{
		Name:   serviceName,
		Option: make(service.KeyValue),
	}

	svc, err := service.New(noopProgram{}, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to service manager: %w", err)
	}

	return &Client{name: serviceName, svc: svc}, nil
}

// Name returns the managed service name.
func (c *Client) Name() string {
	return c.name
}

// Start requests a service start.
func (c *Client) Start() error {
	if err := c.svc.Start(); err != nil {
		return fmt.Errorf("start service %s: %w", c.name, err)
	}
	return nil
}

// Stop requests a service stop.
func (c *Client) Stop() error {
	if err := c.svc.Stop(); err != nil {
		return fmt.Errorf("stop service %s: %w", c.name, err)
	}
	return nil
}

// IsActive reports whether the service is currently running. A service that
// is not installed reports inactive.
func (c *Client) IsActive() (bool, error) {
	status, err := c.svc.Status()
	if errors.Is(err, service.ErrNotInstalled) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query service %s: %w", c.name, err)
	}
	return status == service.StatusRunning, nil
}

// Status returns a human-readable status text.
func (c *Client) Status() (string, error) {
	status, err := c.svc.Status()
	if errors.Is(err, service.ErrNotInstalled) {
		return "not installed", nil
	}
	if err != nil {
		return "", fmt.Errorf("query service %s: %w", c.name, err)
	}

	switch status {
	case service.StatusRunning:
		return "running", nil
	case service.StatusStopped:
		return "stopped", nil
	default:
		return "unknown", nil
	}
}

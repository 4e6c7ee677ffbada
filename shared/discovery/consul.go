package discovery

import (
	"fmt"
	"net"
	"strconv"

	"github.com/hashicorp/consul/api"
	"github.com/rs/zerolog"
)

// Registration describes a service instance announced to Consul.
type Registration struct {
	ServiceName string
	Host        string
	HTTPPort    int
	GRPCPort    int
}

// ServiceID is the Consul id of the instance.
func (r Registration) ServiceID() string {
	return fmt.Sprintf("%s-%s-%d", r.ServiceName, r.Host, r.HTTPPort)
}

func (r Registration) agentRegistration() *api.AgentServiceRegistration {
	return &api.AgentServiceRegistration{
		ID:      r.ServiceID(),
		Name:    r.ServiceName,
		Address: r.Host,
		Port:    r.HTTPPort,
		Tags:    []string{"http"},
		Check: &api.AgentServiceCheck{
			GRPC:                           net.JoinHostPort(r.Host, strconv.Itoa(r.GRPCPort)),
			Interval:                       "10s",
			Timeout:                        "3s",
			DeregisterCriticalServiceAfter: "1m",
		},
	}
}

// ConsulRegistry registers and deregisters service instances with a Consul agent.
type ConsulRegistry struct {
	client *api.Client
	logger *zerolog.Logger
}

// NewConsulRegistry creates a ConsulRegistry for the agent at address.
func NewConsulRegistry(address string, logger *zerolog.Logger) (*ConsulRegistry, error) {
	cfg := api.DefaultConfig()
	if address != "" {
		cfg.Address = address
	}

	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create consul client: %w", err)
	}

	return &ConsulRegistry{client: client, logger: logger}, nil
}

// Register announces the instance with a gRPC health check against its health server.
func (c *ConsulRegistry) Register(reg Registration) error {
	if err := c.client.Agent().ServiceRegister(reg.agentRegistration()); err != nil {
		return fmt.Errorf("failed to register service %s: %w", reg.ServiceID(), err)
	}

	c.logger.Info().Str("service_id", reg.ServiceID()).Msg("registered service with consul")
	return nil
}

// Deregister removes the instance from Consul.
func (c *ConsulRegistry) Deregister(reg Registration) error {
	if err := c.client.Agent().ServiceDeregister(reg.ServiceID()); err != nil {
		return fmt.Errorf("failed to deregister service %s: %w", reg.ServiceID(), err)
	}

	c.logger.Info().Str("service_id", reg.ServiceID()).Msg("deregistered service from consul")
	return nil
}

package kv

import (
	clientv3 "go.etcd.io/etcd/client/v3"

	consulapi "github.com/hashicorp/consul/api"
)

// EtcdAdapter is an adapter stub for an external etcd cluster. It holds a
// real client so construction exercises go.etcd.io/etcd/client/v3's
// connection setup, but every Store operation returns a typed
// not-implemented RuntimeError until the key mapping and lease-based
// watch semantics are designed and wired (§4.K).
type EtcdAdapter struct {
	client *clientv3.Client
}

// NewEtcdAdapter dials endpoints without blocking (etcd's client is lazy);
// failures surface on first real use once the adapter is wired.
func NewEtcdAdapter(endpoints []string) (*EtcdAdapter, error) {
	client, err := clientv3.New(clientv3.Config{Endpoints: endpoints})
	if err != nil {
		return nil, notImplemented("etcd")
	}
	return &EtcdAdapter{client: client}, nil
}

func (e *EtcdAdapter) StoreConfig(key string, value []byte) error                  { return notImplemented("etcd") }
func (e *EtcdAdapter) GetConfig(key string) ([]byte, bool, error)                  { return nil, false, notImplemented("etcd") }
func (e *EtcdAdapter) RemoveConfig(key string) error                               { return notImplemented("etcd") }
func (e *EtcdAdapter) ListKeys() ([]string, error)                                 { return nil, notImplemented("etcd") }
func (e *EtcdAdapter) GetAllConfig() (map[string][]byte, error)                    { return nil, notImplemented("etcd") }
func (e *EtcdAdapter) WatchConfig(key string) (<-chan ConfigChange, func(), error) { return nil, nil, notImplemented("etcd") }
func (e *EtcdAdapter) Transaction(ops []Op) error                                  { return notImplemented("etcd") }
func (e *EtcdAdapter) HealthCheck() error {
	if e.client == nil {
		return notImplemented("etcd")
	}
	return notImplemented("etcd")
}
func (e *EtcdAdapter) Close() error {
	if e.client == nil {
		return nil
	}
	return e.client.Close()
}

// ConsulAdapter is the analogous stub for HashiCorp Consul's KV API.
type ConsulAdapter struct {
	client *consulapi.Client
}

// NewConsulAdapter builds a real Consul API client from addr.
func NewConsulAdapter(addr string) (*ConsulAdapter, error) {
	cfg := consulapi.DefaultConfig()
	if addr != "" {
		cfg.Address = addr
	}
	client, err := consulapi.NewClient(cfg)
	if err != nil {
		return nil, notImplemented("consul")
	}
	return &ConsulAdapter{client: client}, nil
}

func (c *ConsulAdapter) StoreConfig(key string, value []byte) error                  { return notImplemented("consul") }
func (c *ConsulAdapter) GetConfig(key string) ([]byte, bool, error)                  { return nil, false, notImplemented("consul") }
func (c *ConsulAdapter) RemoveConfig(key string) error                               { return notImplemented("consul") }
func (c *ConsulAdapter) ListKeys() ([]string, error)                                 { return nil, notImplemented("consul") }
func (c *ConsulAdapter) GetAllConfig() (map[string][]byte, error)                    { return nil, notImplemented("consul") }
func (c *ConsulAdapter) WatchConfig(key string) (<-chan ConfigChange, func(), error) { return nil, nil, notImplemented("consul") }
func (c *ConsulAdapter) Transaction(ops []Op) error                                  { return notImplemented("consul") }
func (c *ConsulAdapter) HealthCheck() error                                          { return notImplemented("consul") }
func (c *ConsulAdapter) Close() error                                                { return nil }

var (
	_ Store = (*EtcdAdapter)(nil)
	_ Store = (*ConsulAdapter)(nil)
)

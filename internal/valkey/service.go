package valkey

import (
	"context"
	"fmt"
	"time"

	"github.com/flurbudurbur/degustation/internal/domain"
	"github.com/valkey-io/valkey-go"
)

// Service stores room documents in Valkey (or any Redis-protocol server).
type Service struct {
	client valkey.Client
}

var _ domain.KVStore = (*Service)(nil)

// NewService connects to Valkey and pings it once.
func NewService(cfg domain.ValkeyConfig) (*Service, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{cfg.Address},
		Password:    cfg.Password,
		SelectDB:    cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	s := NewServiceWithClient(client)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Valkey: %w", err)
	}

	return s, nil
}

// NewServiceWithClient wraps an existing client.
func NewServiceWithClient(client valkey.Client) *Service {
	return &Service{client: client}
}

func (s *Service) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := s.client.Do(ctx, s.client.B().Get().Key(key).Build()).AsBytes()
	if valkey.IsValkeyNil(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("valkey get %s: %w", key, err)
	}
	return v, true, nil
}

func (s *Service) Set(ctx context.Context, key string, value []byte) error {
	cmd := s.client.B().Set().Key(key).Value(valkey.BinaryString(value)).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("valkey set %s: %w", key, err)
	}
	return nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.client.Do(ctx, s.client.B().Ping().Build()).Error()
}

// Close closes the Valkey client connection.
func (s *Service) Close() error {
	if s.client != nil {
		s.client.Close()
	}
	return nil
}

package tls

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/spiffe/go-spiffe/v2/spiffetls/tlsconfig"
	"github.com/spiffe/go-spiffe/v2/workloadapi"
	"go.uber.org/zap"
)

type Settings struct {
	TLSEnabled    bool          `envconfig:"TLS_ENABLED" default:"false"`
	SocketPath    string        `envconfig:"SPIRE_SOCKET_PATH" default:"unix:///run/spire/sockets/agent.sock"`
	WatchInterval time.Duration `envconfig:"SPIRE_WATCH_INTERVAL" default:"30s"`
}

// Source serves SPIRE-issued SVIDs for mTLS on the HTTP listener.
type Source struct {
	x509   *workloadapi.X509Source
	logger *zap.Logger
}

// Load returns nil, nil when TLS is disabled.
func Load(ctx context.Context, s Settings, logger *zap.Logger) (*Source, error) {
	if !s.TLSEnabled {
		logger.Info("TLS is disabled")
		return nil, nil
	}

	// SPIRE Workload API를 통해 X509 소스 생성
	source, err := workloadapi.NewX509Source(
		ctx,
		workloadapi.WithClientOptions(
			workloadapi.WithAddr(s.SocketPath),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to create X509Source: %w", err)
	}

	logger.Info("SPIRE TLS configuration loaded",
		zap.String("socket_path", s.SocketPath),
		zap.Bool("mtls_enabled", true))

	return &Source{x509: source, logger: logger}, nil
}

func (s *Source) ServerConfig() *tls.Config {
	cfg := tlsconfig.MTLSServerConfig(s.x509, s.x509, tlsconfig.AuthorizeAny())
	cfg.MinVersion = tls.VersionTLS12
	return cfg
}

// Watch logs the current SVID until ctx is done. SPIRE rotates the
// certificates itself.
func (s *Source) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svid, err := s.x509.GetX509SVID()
			if err != nil {
				s.logger.Error("Failed to get X509 SVID", zap.Error(err))
				continue
			}
			s.logger.Info("Certificate status",
				zap.String("spiffe_id", svid.ID.String()),
				zap.Time("expiry", svid.Certificates[0].NotAfter),
				zap.Duration("ttl", time.Until(svid.Certificates[0].NotAfter)))
		}
	}
}

func (s *Source) Close() error {
	return s.x509.Close()
}

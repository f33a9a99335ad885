package esplorachainclock

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/gateway-os/gatewayd/internal/core/ports"
)

const tipHeightEndpoint = "/blocks/tip/height"

type service struct {
	tipURL string
	client *http.Client
}

func NewChainClock(esploraURL string) (ports.ChainClock, error) {
	if len(esploraURL) == 0 {
		return nil, fmt.Errorf("esplora URL is required")
	}

	tipURL, err := url.JoinPath(esploraURL, tipHeightEndpoint)
	if err != nil {
		return nil, err
	}

	return &service{
		tipURL: tipURL,
		client: &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (s *service) CurrentHeight(ctx context.Context) (uint64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.tipURL, nil)
	if err != nil {
		return 0, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}

	// nolint:all
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var tip uint64
	if _, err := fmt.Fscanf(resp.Body, "%d", &tip); err != nil {
		return 0, err
	}

	log.Debugf("fetching tip height from %s, got %d", s.tipURL, tip)

	return tip, nil
}

package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/channelforge/forcemove/internal/core/domain"
	"github.com/channelforge/forcemove/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

// client talks JSON over HTTP to the adjudicator node and polls it for
// chain events.
type client struct {
	baseURL string
	http    *http.Client

	depositedCh chan ports.ChainEvent
	challengeCh chan ports.ChainEvent
	concludedCh chan ports.ChainEvent
	stopCh      chan struct{}
}

type txResponse struct {
	Txid string `json:"txid"`
}

type holdingsResponse struct {
	Holdings uint64 `json:"holdings"`
}

type eventEnvelope struct {
	Type            string                  `json:"type"`
	ChannelID       string                  `json:"channelId"`
	AmountDeposited uint64                  `json:"amountDeposited,omitempty"`
	TotalHoldings   uint64                  `json:"totalHoldings,omitempty"`
	Challenge       *domain.SignedStateWire `json:"challenge,omitempty"`
	Expiry          int64                   `json:"expiry,omitempty"`
	Sequence        uint64                  `json:"sequence"`
}

func NewService(baseURL string, pollInterval time.Duration) ports.ChainService {
	svc := &client{
		baseURL:     baseURL,
		http:        &http.Client{Timeout: 15 * time.Second},
		depositedCh: make(chan ports.ChainEvent),
		challengeCh: make(chan ports.ChainEvent),
		concludedCh: make(chan ports.ChainEvent),
		stopCh:      make(chan struct{}),
	}
	go svc.pollEvents(pollInterval)
	return svc
}

func (c *client) Holdings(ctx context.Context, channelID string) (uint64, error) {
	var resp holdingsResponse
	url := fmt.Sprintf("%s/v1/channels/%s/holdings", c.baseURL, channelID)
	if err := c.get(ctx, url, &resp); err != nil {
		return 0, err
	}
	return resp.Holdings, nil
}

func (c *client) Deposit(
	ctx context.Context, channelID string, amount, expectedHeld uint64,
) (string, error) {
	return c.postTx(ctx, "/v1/deposit", map[string]interface{}{
		"channelId":    channelID,
		"amount":       amount,
		"expectedHeld": expectedHeld,
	})
}

func (c *client) ForceMove(
	ctx context.Context, channelID string, states []domain.SignedStateWire,
) (string, error) {
	return c.postTx(ctx, "/v1/forceMove", map[string]interface{}{
		"channelId": channelID,
		"states":    states,
	})
}

func (c *client) RespondWithMove(
	ctx context.Context, channelID string, state domain.SignedStateWire,
) (string, error) {
	return c.postTx(ctx, "/v1/respondWithMove", map[string]interface{}{
		"channelId": channelID,
		"state":     state,
	})
}

func (c *client) Refute(
	ctx context.Context, channelID string, state domain.SignedStateWire,
) (string, error) {
	return c.postTx(ctx, "/v1/refute", map[string]interface{}{
		"channelId": channelID,
		"state":     state,
	})
}

func (c *client) Conclude(
	ctx context.Context, channelID string, states []domain.SignedStateWire,
) (string, error) {
	return c.postTx(ctx, "/v1/conclude", map[string]interface{}{
		"channelId": channelID,
		"states":    states,
	})
}

func (c *client) Withdraw(
	ctx context.Context, channelID, destination string, amount uint64,
) (string, error) {
	return c.postTx(ctx, "/v1/withdraw", map[string]interface{}{
		"channelId":   channelID,
		"destination": destination,
		"amount":      amount,
	})
}

func (c *client) GetDepositedNotifications() <-chan ports.ChainEvent { return c.depositedCh }
func (c *client) GetChallengeNotifications() <-chan ports.ChainEvent { return c.challengeCh }
func (c *client) GetConcludedNotifications() <-chan ports.ChainEvent { return c.concludedCh }

func (c *client) Close() {
	close(c.stopCh)
}

func (c *client) pollEvents(interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastSeq uint64
	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
		}

		var events []eventEnvelope
		url := fmt.Sprintf("%s/v1/events?since=%d", c.baseURL, lastSeq)
		if err := c.get(context.Background(), url, &events); err != nil {
			log.WithError(err).Debug("failed to poll chain events")
			continue
		}
		for _, raw := range events {
			if raw.Sequence > lastSeq {
				lastSeq = raw.Sequence
			}
			event := ports.ChainEvent{
				ChannelID:       raw.ChannelID,
				AmountDeposited: raw.AmountDeposited,
				TotalHoldings:   raw.TotalHoldings,
				Challenge:       raw.Challenge,
				Expiry:          raw.Expiry,
			}
			switch raw.Type {
			case "Deposited":
				c.depositedCh <- event
			case "ChallengeCreated":
				c.challengeCh <- event
			case "Concluded":
				c.concludedCh <- event
			default:
				log.Debugf("ignoring unknown chain event type %s", raw.Type)
			}
		}
	}
}

func (c *client) get(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("adjudicator returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *client) postTx(ctx context.Context, path string, body map[string]interface{}) (string, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf),
	)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("adjudicator returned status %d", resp.StatusCode)
	}
	var tx txResponse
	if err := json.NewDecoder(resp.Body).Decode(&tx); err != nil {
		return "", err
	}
	return tx.Txid, nil
}

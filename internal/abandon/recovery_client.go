package abandon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const recoveryTimeout = 5 * time.Second

var (
	ErrRecoveryBadStatus   = errors.New("recovery bad status")
	ErrRecoveryUnavailable = errors.New("recovery unavailable")
)

// RecoveryClient submits abandoned-cart snapshots so the marketing side
// can send recovery emails. Callers treat every error as log-only.
type RecoveryClient struct {
	BaseURL string
	Client  *http.Client
}

func NewRecoveryClient(baseURL string) *RecoveryClient {
	if u, err := url.Parse(baseURL); err == nil && u.Scheme != "" && u.Host != "" {
		baseURL = strings.TrimRight(baseURL, "/")
	}
	return &RecoveryClient{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: recoveryTimeout},
	}
}

type recoveryRequest struct {
	Cart  AbandonedCart `json:"cart"`
	Email string        `json:"email"`
}

func (c *RecoveryClient) Submit(ctx context.Context, rec AbandonedCart, email string) error {
	body, err := json.Marshal(recoveryRequest{Cart: rec, Email: email})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/cart/abandoned", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return ErrRecoveryUnavailable
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%w: status=%d", ErrRecoveryBadStatus, resp.StatusCode)
	}
	return nil
}

package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrdersBadStatus   = errors.New("orders bad status")
	ErrOrdersUnavailable = errors.New("orders unavailable")
)

type OrderClient struct {
	BaseURL string
	Client  *http.Client
}

func NewOrderClient(baseURL string) *OrderClient {
	if u, err := url.Parse(baseURL); err == nil && u.Scheme != "" && u.Host != "" {
		baseURL = strings.TrimRight(baseURL, "/")
	}
	return &OrderClient{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 3 * time.Second},
	}
}

type orderEnvelope struct {
	Order OrderRecord `json:"order"`
}

func (c *OrderClient) GetOrder(ctx context.Context, id string) (OrderRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/api/orders/%s", c.BaseURL, id), nil)
	if err != nil {
		return OrderRecord{}, err
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return OrderRecord{}, ErrOrdersUnavailable
		}
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return OrderRecord{}, ErrOrdersUnavailable
		}
		return OrderRecord{}, ErrOrdersUnavailable
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return OrderRecord{}, ErrOrderNotFound
	default:
		_, _ = io.Copy(io.Discard, resp.Body)
		return OrderRecord{}, fmt.Errorf("%w: status=%d", ErrOrdersBadStatus, resp.StatusCode)
	}

	var env orderEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return OrderRecord{}, err
	}
	return env.Order, nil
}

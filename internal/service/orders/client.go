// Пакет orders реализует клиента внешней системы управления заказами.
// Создание заказа best-effort: его сбой никогда не откатывает оплату.
package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/deals/internal/domain"
	"github.com/vladislavdragonenkov/deals/internal/version"
)

const defaultRequestTimeout = 10 * time.Second

// Client — HTTP JSON клиент системы заказов.
type Client struct {
	baseURL  string
	apiKey   string
	client   *http.Client
	resolver SKUResolver
	logger   *log.Entry
}

// NewClient создаёт клиента системы заказов.
// resolver=nil означает передачу SKU без преобразования.
func NewClient(baseURL, apiKey string, timeout time.Duration, resolver SKUResolver) *Client {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	if resolver == nil {
		resolver = ChainResolver{}
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
		resolver: resolver,
		logger:   log.WithField("component", "orders-client"),
	}
}

type createOrderRequest struct {
	Customer struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Email     string `json:"email"`
		Phone     string `json:"phone,omitempty"`
	} `json:"customer"`
	Address struct {
		Line1      string `json:"line1"`
		Line2      string `json:"line2,omitempty"`
		City       string `json:"city"`
		Region     string `json:"region,omitempty"`
		PostalCode string `json:"postal_code,omitempty"`
	} `json:"address"`
	Line struct {
		SKU       string `json:"sku"`
		Name      string `json:"name"`
		Qty       int32  `json:"qty"`
		UnitMinor int64  `json:"unit_minor"`
	} `json:"line"`
	Payment struct {
		ExternalRef string    `json:"external_ref"`
		GrossMinor  int64     `json:"gross_minor"`
		PaidAt      time.Time `json:"paid_at"`
	} `json:"payment"`
}

type createOrderResponse struct {
	OrderID string `json:"order_id"`
	Error   string `json:"error,omitempty"`
}

// CreateOrder передаёт оплаченное предложение системе исполнения.
// Любая ошибка оборачивается в ErrIntegrationFailure.
func (c *Client) CreateOrder(ctx context.Context, buyer domain.Buyer, address domain.Address, line domain.OrderLine, meta domain.PaymentMeta) (string, error) {
	var payload createOrderRequest
	payload.Customer.FirstName = buyer.FirstName
	payload.Customer.LastName = buyer.LastName
	payload.Customer.Email = buyer.Email
	payload.Customer.Phone = buyer.Phone
	payload.Address.Line1 = address.Line1
	payload.Address.Line2 = address.Line2
	payload.Address.City = address.City
	payload.Address.Region = address.Region
	payload.Address.PostalCode = address.PostalCode
	payload.Line.SKU = c.resolver.Resolve(line.SKU)
	payload.Line.Name = line.Name
	payload.Line.Qty = line.Qty
	payload.Line.UnitMinor = line.UnitMinor
	payload.Payment.ExternalRef = meta.ExternalRef
	payload.Payment.GrossMinor = meta.GrossMinor
	payload.Payment.PaidAt = meta.PaidAt

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: marshal order request: %v", domain.ErrIntegrationFailure, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: build order request: %v", domain.ErrIntegrationFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.WithError(err).Warn("order system unreachable")
		return "", fmt.Errorf("%w: %v", domain.ErrIntegrationFailure, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read order response: %v", domain.ErrIntegrationFailure, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.WithFields(log.Fields{
			"status": resp.StatusCode,
			"body":   strings.TrimSpace(string(respBody)),
		}).Warn("order system returned error")
		return "", fmt.Errorf("%w: order system status %d", domain.ErrIntegrationFailure, resp.StatusCode)
	}

	var parsed createOrderResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("%w: decode order response: %v", domain.ErrIntegrationFailure, err)
	}
	if parsed.OrderID == "" {
		return "", fmt.Errorf("%w: order system returned empty order id", domain.ErrIntegrationFailure)
	}

	return parsed.OrderID, nil
}

var _ domain.OrderSystem = (*Client)(nil)

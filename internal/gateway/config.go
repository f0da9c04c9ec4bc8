// Пакет gateway реализует интеграцию с внешним платёжным шлюзом:
// построение исходящего платёжного запроса и проверку входящих
// асинхронных уведомлений об оплате.
package gateway

import (
	"fmt"
	"strings"
	"time"
)

const defaultValidateTimeout = 10 * time.Second

// Config описывает параметры интеграции с платёжным шлюзом.
type Config struct {
	// MerchantID и MerchantKey идентифицируют продавца на стороне шлюза.
	MerchantID  string
	MerchantKey string
	// Passphrase — общий секрет, участвующий в расчёте подписи.
	Passphrase string

	// ProcessURL — endpoint шлюза для приёма платёжного запроса.
	ProcessURL string
	// ValidateURL — endpoint шлюза для подтверждающего round-trip.
	ValidateURL string

	// PublicBaseURL — собственный публичный адрес сервиса;
	// из него выводятся абсолютные return/cancel/notify URL.
	PublicBaseURL string

	// AllowedHosts — allow-list адресов, с которых шлюз шлёт уведомления.
	AllowedHosts []string
	// SkipOriginCheck отключает проверку источника; только для тестовых сред.
	SkipOriginCheck bool

	// ValidateTimeout ограничивает длительность подтверждающего round-trip.
	ValidateTimeout time.Duration
}

// Validate проверяет полноту конфигурации шлюза.
func (c Config) Validate() error {
	if strings.TrimSpace(c.MerchantID) == "" {
		return fmt.Errorf("gateway merchant id is required")
	}
	if strings.TrimSpace(c.MerchantKey) == "" {
		return fmt.Errorf("gateway merchant key is required")
	}
	if strings.TrimSpace(c.ProcessURL) == "" {
		return fmt.Errorf("gateway process url is required")
	}
	if strings.TrimSpace(c.ValidateURL) == "" {
		return fmt.Errorf("gateway validate url is required")
	}
	if strings.TrimSpace(c.PublicBaseURL) == "" {
		return fmt.Errorf("public base url is required")
	}
	if !c.SkipOriginCheck && len(c.AllowedHosts) == 0 {
		return fmt.Errorf("gateway allowed hosts are required when origin check is enabled")
	}
	return nil
}

func (c Config) validateTimeout() time.Duration {
	if c.ValidateTimeout > 0 {
		return c.ValidateTimeout
	}
	return defaultValidateTimeout
}

func (c Config) baseURL() string {
	return strings.TrimRight(c.PublicBaseURL, "/")
}

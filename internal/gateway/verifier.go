package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/deals/internal/domain"
	"github.com/vladislavdragonenkov/deals/internal/signature"
)

// validResponse — буквальный ответ validation-endpoint'а шлюза,
// подтверждающий подлинность уведомления.
const validResponse = "VALID"

// amountToleranceMinor — допустимое расхождение суммы в минимальных единицах.
const amountToleranceMinor = int64(1)

// Verifier проверяет входящее уведомление по источнику, подписи, сумме
// и подтверждающему round-trip к шлюзу. Порядок проверок фиксирован.
type Verifier struct {
	cfg    Config
	client *http.Client
	logger *log.Entry
}

// NewVerifier создаёт верификатор уведомлений.
func NewVerifier(cfg Config) *Verifier {
	return &Verifier{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.validateTimeout(),
		},
		logger: log.WithField("component", "gateway-verifier"),
	}
}

// Verify прогоняет уведомление через все проверки.
// expectedGrossMinor — сумма, которую предложение ожидает к оплате.
func (v *Verifier) Verify(ctx context.Context, n Notification, expectedGrossMinor int64) error {
	if err := v.checkOrigin(n); err != nil {
		return err
	}
	if !signature.Verify(n.Raw, v.cfg.Passphrase, n.Signature) {
		return domain.ErrSignatureMismatch
	}
	if err := checkAmount(n.GrossMinor, expectedGrossMinor); err != nil {
		return err
	}
	return v.confirmWithGateway(ctx, n)
}

func (v *Verifier) checkOrigin(n Notification) error {
	if v.cfg.SkipOriginCheck {
		return nil
	}
	for _, host := range v.cfg.AllowedHosts {
		if strings.EqualFold(strings.TrimSpace(host), n.SourceHost) {
			return nil
		}
	}
	return domain.ErrOriginRejected
}

func checkAmount(got, want int64) error {
	diff := got - want
	if diff < 0 {
		diff = -diff
	}
	if diff > amountToleranceMinor {
		return domain.ErrAmountMismatch
	}
	return nil
}

// confirmWithGateway выполняет синхронный round-trip к validation-endpoint'у:
// возвращает присланные поля шлюзу и ждёт буквального подтверждения.
// Таймаут ограничен; любой сбой трактуется как отказ, не как фатальная ошибка.
func (v *Verifier) confirmWithGateway(ctx context.Context, n Notification) error {
	form := make(url.Values, len(n.Raw))
	for name, value := range n.Raw {
		form.Set(name, value)
	}

	reqCtx, cancel := context.WithTimeout(ctx, v.cfg.validateTimeout())
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, v.cfg.ValidateURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build gateway validation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		v.logger.WithError(err).WithField("token", n.Token).Warn("gateway validation round-trip failed")
		return domain.ErrGatewayRejected
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		v.logger.WithError(err).WithField("token", n.Token).Warn("gateway validation response unreadable")
		return domain.ErrGatewayRejected
	}

	if resp.StatusCode != http.StatusOK || strings.TrimSpace(string(body)) != validResponse {
		v.logger.WithFields(log.Fields{
			"token":  n.Token,
			"status": resp.StatusCode,
			"body":   strings.TrimSpace(string(body)),
		}).Warn("gateway did not confirm notification")
		return domain.ErrGatewayRejected
	}

	return nil
}

package gateway

import (
	"net"
	"net/url"
	"strings"

	"github.com/vladislavdragonenkov/deals/internal/domain"
	"github.com/vladislavdragonenkov/deals/internal/signature"
)

// Статусы платежа, присылаемые шлюзом в уведомлении.
const (
	PaymentStatusComplete  = "COMPLETE"
	PaymentStatusCancelled = "CANCELLED"
)

// Notification — разобранное асинхронное уведомление шлюза об исходе платежа.
type Notification struct {
	// Raw — все присланные поля как есть; по ним пересчитывается подпись.
	Raw map[string]string

	// Token — корреляционный идентификатор предложения (m_payment_id).
	Token string
	// PaymentID — идентификатор платежа на стороне шлюза (pf_payment_id).
	PaymentID string
	// Status — исход платежа (COMPLETE, CANCELLED или иной).
	Status string
	// GrossMinor — заявленная шлюзом полная сумма в минимальных единицах.
	GrossMinor int64
	// Signature — подпись, присланная шлюзом.
	Signature string

	// SourceHost — адрес источника запроса без порта.
	SourceHost string
}

// ParseNotification разбирает form-поля уведомления.
// Единственная структурная ошибка — отсутствие корреляционного токена;
// всё остальное проверяет Verifier. Поля вне протокола шлюза
// отбрасываются сразу: в подписи они всё равно не участвуют.
func ParseNotification(form url.Values, remoteAddr string) (Notification, error) {
	raw := make(map[string]string, len(form))
	for name := range form {
		if !signature.Recognized(name) && name != signature.SignatureField {
			continue
		}
		raw[name] = form.Get(name)
	}

	n := Notification{
		Raw:        raw,
		Token:      strings.TrimSpace(raw["m_payment_id"]),
		PaymentID:  strings.TrimSpace(raw["pf_payment_id"]),
		Status:     strings.ToUpper(strings.TrimSpace(raw["payment_status"])),
		Signature:  strings.TrimSpace(raw[signature.SignatureField]),
		SourceHost: hostOnly(remoteAddr),
	}

	if n.Token == "" {
		return Notification{}, domain.ErrTokenRequired
	}

	if rawGross := strings.TrimSpace(raw["amount_gross"]); rawGross != "" {
		gross, err := ParseAmount(rawGross)
		if err == nil {
			n.GrossMinor = gross
		}
	}

	return n, nil
}

func hostOnly(remoteAddr string) string {
	remoteAddr = strings.TrimSpace(remoteAddr)
	if remoteAddr == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}

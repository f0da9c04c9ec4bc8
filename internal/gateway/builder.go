package gateway

import (
	"fmt"
	"html"
	"net/url"
	"strings"

	"github.com/vladislavdragonenkov/deals/internal/domain"
	"github.com/vladislavdragonenkov/deals/internal/signature"
)

// Field — одна пара имя/значение платёжного запроса.
// Порядок полей в запросе значим и продиктован шлюзом.
type Field struct {
	Name  string
	Value string
}

// PaymentRequest — готовый к отправке платёжный запрос:
// endpoint шлюза и упорядоченный набор полей с подписью в конце.
type PaymentRequest struct {
	ProcessURL string
	Fields     []Field
}

// BuildRequest собирает платёжный запрос для подтверждённого предложения.
// Поля идут в фиксированном порядке подписи, подпись добавляется последней.
func BuildRequest(cfg Config, deal domain.Deal) (PaymentRequest, error) {
	if deal.Token == "" {
		return PaymentRequest{}, domain.ErrTokenRequired
	}
	if err := cfg.Validate(); err != nil {
		return PaymentRequest{}, fmt.Errorf("gateway config: %w", err)
	}

	base := cfg.baseURL()
	fields := map[string]string{
		"merchant_id":   cfg.MerchantID,
		"merchant_key":  cfg.MerchantKey,
		"return_url":    base + "/deals/" + deal.Token + "/return",
		"cancel_url":    base + "/deals/" + deal.Token + "/cancel",
		"notify_url":    base + "/api/gateway/notify",
		"name_first":    deal.Buyer.FirstName,
		"name_last":     deal.Buyer.LastName,
		"email_address": deal.Buyer.Email,
		"cell_number":   deal.Buyer.Phone,
		"m_payment_id":  deal.Token,
		"amount":        FormatAmount(deal.GrossMinor()),
		"item_name":     deal.ProductName,
		"item_description": fmt.Sprintf("%s x%d", deal.SKU, deal.Quantity),
	}

	ordered := make([]Field, 0, len(fields)+1)
	for _, name := range signature.Order() {
		value, ok := fields[name]
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		ordered = append(ordered, Field{Name: name, Value: strings.TrimSpace(value)})
	}

	ordered = append(ordered, Field{
		Name:  signature.SignatureField,
		Value: signature.Compute(fields, cfg.Passphrase),
	})

	return PaymentRequest{
		ProcessURL: cfg.ProcessURL,
		Fields:     ordered,
	}, nil
}

// Values представляет поля запроса как url.Values для form POST.
func (r PaymentRequest) Values() url.Values {
	values := make(url.Values, len(r.Fields))
	for _, f := range r.Fields {
		values.Set(f.Name, f.Value)
	}
	return values
}

// HTMLForm рендерит автосабмитящуюся HTML-форму для редиректа покупателя
// на страницу оплаты шлюза.
func (r PaymentRequest) HTMLForm() string {
	var b strings.Builder
	b.WriteString(`<form id="gateway-redirect" method="post" action="`)
	b.WriteString(html.EscapeString(r.ProcessURL))
	b.WriteString("\">\n")
	for _, f := range r.Fields {
		b.WriteString(`  <input type="hidden" name="`)
		b.WriteString(html.EscapeString(f.Name))
		b.WriteString(`" value="`)
		b.WriteString(html.EscapeString(f.Value))
		b.WriteString("\">\n")
	}
	b.WriteString("</form>\n")
	b.WriteString(`<script>document.getElementById("gateway-redirect").submit();</script>`)
	return b.String()
}

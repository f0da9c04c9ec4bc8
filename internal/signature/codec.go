// Пакет signature реализует канонический расчёт подписи платёжного шлюза.
// Одна и та же функция используется и для подписи исходящих запросов,
// и для проверки входящих уведомлений: расхождение этих путей — баг.
package signature

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// SignatureField — имя поля, в котором шлюз передаёт подпись.
// Оно никогда не участвует в расчёте.
const SignatureField = "signature"

const passphraseField = "passphrase"

// fieldOrder — фиксированный порядок полей, продиктованный шлюзом.
// Поля вне этого списка в подпись не входят.
var fieldOrder = []string{
	"merchant_id",
	"merchant_key",
	"return_url",
	"cancel_url",
	"notify_url",
	"name_first",
	"name_last",
	"email_address",
	"cell_number",
	"m_payment_id",
	"amount",
	"item_name",
	"item_description",
	"custom_int1",
	"custom_int2",
	"custom_str1",
	"custom_str2",
	"email_confirmation",
	"confirmation_address",
	"payment_method",
	"pf_payment_id",
	"payment_status",
	"amount_gross",
	"amount_fee",
	"amount_net",
}

var recognized = func() map[string]struct{} {
	m := make(map[string]struct{}, len(fieldOrder))
	for _, name := range fieldOrder {
		m[name] = struct{}{}
	}
	return m
}()

// Order возвращает копию фиксированного порядка полей.
func Order() []string {
	out := make([]string, len(fieldOrder))
	copy(out, fieldOrder)
	return out
}

// Recognized сообщает, участвует ли поле в расчёте подписи.
func Recognized(name string) bool {
	_, ok := recognized[name]
	return ok
}

// Compute вычисляет подпись над набором полей с общим секретом.
// Поля берутся в фиксированном порядке независимо от порядка в map;
// пустые значения пропускаются целиком; непустой секрет добавляется
// последней парой. Результат — lowercase hex MD5 (алгоритм продиктован
// внешним верификатором, менять его нельзя).
func Compute(fields map[string]string, passphrase string) string {
	sum := md5.Sum([]byte(Canonical(fields, passphrase)))
	return hex.EncodeToString(sum[:])
}

// Canonical строит точную байтовую строку, которая хэшируется.
// Выделена отдельно ради тестов и отладки расхождений со шлюзом.
func Canonical(fields map[string]string, passphrase string) string {
	var b strings.Builder

	for _, name := range fieldOrder {
		value, ok := fields[name]
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}

		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(Encode(value))
	}

	if passphrase = strings.TrimSpace(passphrase); passphrase != "" {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(passphraseField)
		b.WriteByte('=')
		b.WriteString(Encode(passphrase))
	}

	return b.String()
}

// Verify сравнивает полученную подпись с вычисленной за постоянное время.
// Поле signature из входного набора исключается.
func Verify(fields map[string]string, passphrase, received string) bool {
	if received == "" {
		return false
	}

	stripped := make(map[string]string, len(fields))
	for name, value := range fields {
		if name == SignatureField {
			continue
		}
		stripped[name] = value
	}

	expected := Compute(stripped, passphrase)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(received))) == 1
}

const upperhex = "0123456789ABCDEF"

// Encode кодирует значение в варианте percent-encoding, который требует шлюз:
// двухзначный hex в верхнем регистре, пробел как `+`. Стандартная библиотека
// не используется намеренно: её классы символов не являются контрактом шлюза
// (например, `~` она оставляет как есть).
func Encode(value string) string {
	var b strings.Builder
	b.Grow(len(value))

	for i := 0; i < len(value); i++ {
		c := value[i]
		switch {
		case c == ' ':
			b.WriteByte('+')
		case c >= 'A' && c <= 'Z',
			c >= 'a' && c <= 'z',
			c >= '0' && c <= '9',
			c == '-', c == '_', c == '.':
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(upperhex[c>>4])
			b.WriteByte(upperhex[c&0x0F])
		}
	}

	return b.String()
}

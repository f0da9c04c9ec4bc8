package orders

import (
	"strings"
	"unicode"
)

// SKUResolver приводит SKU предложения к идентификатору, который понимает
// внешняя система заказов.
type SKUResolver interface {
	Resolve(sku string) string
}

// ChainResolver пробует варианты по очереди: точный SKU, префикс до первого
// дефиса, завершающий числовой идентификатор. Первый непустой вариант,
// который принимает known, и становится ответом; иначе возвращается SKU как есть.
type ChainResolver struct {
	// Known проверяет, известен ли кандидат внешней системе.
	// nil означает "принимать первый непустой вариант".
	Known func(candidate string) bool
}

// Resolve возвращает первый подходящий вариант идентификатора.
func (r ChainResolver) Resolve(sku string) string {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return ""
	}

	for _, candidate := range candidates(sku) {
		if candidate == "" {
			continue
		}
		if r.Known == nil || r.Known(candidate) {
			return candidate
		}
	}
	return sku
}

func candidates(sku string) []string {
	out := []string{sku}

	if idx := strings.IndexByte(sku, '-'); idx > 0 {
		out = append(out, sku[:idx])
	}

	if tail := trailingDigits(sku); tail != "" && tail != sku {
		out = append(out, tail)
	}

	return out
}

func trailingDigits(s string) string {
	end := len(s)
	start := end
	for start > 0 && unicode.IsDigit(rune(s[start-1])) {
		start--
	}
	if start == end {
		return ""
	}
	return s[start:end]
}

var _ SKUResolver = ChainResolver{}

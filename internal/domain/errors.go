package domain

import "errors"

var (
	// Ошибка отсутствующего токена предложения.
	ErrTokenRequired = errors.New("deal token is required")
	// Ошибка отсутствующего идентификатора товара.
	ErrProductRequired = errors.New("product_id is required")
	// Ошибка при некорректном количестве товара (< 1).
	ErrQuantityInvalid = errors.New("quantity must be at least one")
	// Ошибка отрицательной базовой стоимости.
	ErrCostBasisNegative = errors.New("cost basis must be non-negative")
	// Ошибка отрицательной наценки.
	ErrMarkupNegative = errors.New("markup fraction must be non-negative")
	// Ошибка отрицательной стоимости доставки.
	ErrShippingNegative = errors.New("shipping fee must be non-negative")
	// Ошибка несоответствия зафиксированной цены предложения производной формуле.
	ErrOfferPriceMismatch = errors.New("offer price does not match cost basis and markup")
	// Ошибка отсутствующего срока действия предложения.
	ErrExpiryRequired = errors.New("deal expiry is required")
	// Ошибка отсутствующих контактов покупателя при подтверждении.
	ErrBuyerRequired = errors.New("buyer contact is required")
	// Ошибка отсутствующего адреса доставки при подтверждении.
	ErrAddressRequired = errors.New("delivery address is required")

	// ErrDealNotFound возвращается, если предложение не найдено в хранилище.
	ErrDealNotFound = errors.New("deal not found")
	// ErrDealExists сигнализирует о попытке создать предложение с занятым токеном.
	ErrDealExists = errors.New("deal already exists")
	// ErrDealVersionConflict сигнализирует о конфликте версий при сохранении.
	ErrDealVersionConflict = errors.New("deal version conflict")
	// ErrInvalidTransition — недопустимый переход жизненного цикла; операция не выполняется.
	ErrInvalidTransition = errors.New("invalid deal state transition")
	// ErrDealExpired — срок действия предложения истёк, принять или оплатить его нельзя.
	ErrDealExpired = errors.New("deal expired")

	// ErrProductUnavailable — товар не существует, неактивен или полностью распродан.
	ErrProductUnavailable = errors.New("product unavailable")
	// ErrInsufficientStock — на складе меньше товара, чем требует предложение.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrSignatureMismatch — подпись уведомления не совпала с вычисленной.
	ErrSignatureMismatch = errors.New("notification signature mismatch")
	// ErrAmountMismatch — сумма в уведомлении не совпала с суммой предложения.
	ErrAmountMismatch = errors.New("notification amount mismatch")
	// ErrGatewayRejected — шлюз не подтвердил уведомление при обратной проверке.
	ErrGatewayRejected = errors.New("gateway rejected notification")
	// ErrOriginRejected — уведомление пришло с адреса вне allow-list шлюза.
	ErrOriginRejected = errors.New("notification origin rejected")

	// ErrIntegrationFailure — внешняя система заказов недоступна или ответила ошибкой.
	// Не откатывает оплату; фиксируется для ручной сверки.
	ErrIntegrationFailure = errors.New("downstream order integration failure")

	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")

	// ErrIdempotencyKeyRequired — пустой ключ идемпотентности.
	ErrIdempotencyKeyRequired = errors.New("idempotency key is required")
	// ErrIdempotencyRequestHashRequired — пустой hash запроса.
	ErrIdempotencyRequestHashRequired = errors.New("idempotency request hash is required")
	// ErrIdempotencyKeyNotFound — ключ не найден.
	ErrIdempotencyKeyNotFound = errors.New("idempotency key not found")
	// ErrIdempotencyKeyAlreadyExists — ключ уже зарегистрирован.
	ErrIdempotencyKeyAlreadyExists = errors.New("idempotency key already exists")
	// ErrIdempotencyHashMismatch — ключ переиспользован с другим телом запроса.
	ErrIdempotencyHashMismatch = errors.New("idempotency request hash mismatch")
)

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrDealVersionConflict)
}

// IsTerminalRejection проверяет, относится ли ошибка к отказам проверки уведомления.
// Такие ошибки фиксируются в журнале, но наружу шлюзу всегда уходит подтверждение.
func IsTerminalRejection(err error) bool {
	return errors.Is(err, ErrSignatureMismatch) ||
		errors.Is(err, ErrAmountMismatch) ||
		errors.Is(err, ErrGatewayRejected) ||
		errors.Is(err, ErrOriginRejected)
}

package domain

import (
	"math"
	"time"
)

// DealStatus описывает жизненный цикл персонального предложения.
type DealStatus string

const (
	// DealStatusPending — предложение создано, покупатель ещё не подтвердил его.
	DealStatusPending DealStatus = "pending"
	// DealStatusAccepted — покупатель подтвердил предложение и указал контакты/адрес.
	DealStatusAccepted DealStatus = "accepted"
	// DealStatusPaid — оплата подтверждена платёжным шлюзом.
	DealStatusPaid DealStatus = "paid"
	// DealStatusExpired — срок действия предложения истёк до оплаты.
	DealStatusExpired DealStatus = "expired"
	// DealStatusCancelled — шлюз прислал уведомление об отмене платежа.
	DealStatusCancelled DealStatus = "cancelled"
)

// Terminal сообщает, является ли статус конечным: из него нет переходов.
func (s DealStatus) Terminal() bool {
	switch s {
	case DealStatusPaid, DealStatusExpired, DealStatusCancelled:
		return true
	default:
		return false
	}
}

// Buyer содержит контактные данные покупателя, фиксируемые при подтверждении.
type Buyer struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// Empty сообщает, заданы ли обязательные контакты покупателя.
func (b Buyer) Empty() bool {
	return b.FirstName == "" && b.Email == ""
}

// Address — адрес доставки; фиксируется при подтверждении предложения.
type Address struct {
	Line1      string
	Line2      string
	City       string
	Region     string
	PostalCode string
}

// Empty сообщает, задан ли адрес хотя бы минимально.
func (a Address) Empty() bool {
	return a.Line1 == "" && a.City == ""
}

// Deal агрегирует персональное предложение и его состояние.
// Денежные поля хранятся в минимальных денежных единицах (центах).
type Deal struct {
	// Token — первичный ключ и корреляционный идентификатор для платёжного шлюза.
	Token     string
	ProductID string
	// SKU и ProductName — снимок карточки товара на момент создания предложения.
	SKU         string
	ProductName string

	// CostBasisMinor и MarkupFraction фиксируются при создании и не пересчитываются.
	CostBasisMinor int64
	MarkupFraction float64
	// OfferPriceMinor = round(cost_basis * (1 + markup)); хранится для аудита.
	OfferPriceMinor  int64
	Quantity         int32
	ShippingFeeMinor int64

	ExpiresAt time.Time
	Status    DealStatus

	Buyer   Buyer
	Address Address

	// ExternalPaymentRef — идентификатор платежа на стороне шлюза.
	ExternalPaymentRef string
	// DownstreamOrderRef — идентификатор заказа во внешней системе исполнения.
	// Пустое значение у оплаченного предложения означает незавершённую интеграцию,
	// а не ошибку жизненного цикла.
	DownstreamOrderRef string

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OfferPrice вычисляет цену предложения из базовой стоимости и наценки.
func OfferPrice(costBasisMinor int64, markupFraction float64) int64 {
	return int64(math.Round(float64(costBasisMinor) * (1 + markupFraction)))
}

// GrossMinor возвращает полную сумму к оплате: цена * количество + доставка.
func (d *Deal) GrossMinor() int64 {
	return d.OfferPriceMinor*int64(d.Quantity) + d.ShippingFeeMinor
}

// ExpiredAt сообщает, истекло ли предложение к моменту now.
func (d *Deal) ExpiredAt(now time.Time) bool {
	return !now.Before(d.ExpiresAt)
}

// ValidateInvariants проверяет базовые инварианты предложения и возвращает список замечаний.
func (d *Deal) ValidateInvariants() []error {
	var errs []error

	if d.Token == "" {
		errs = append(errs, ErrTokenRequired)
	}
	if d.ProductID == "" {
		errs = append(errs, ErrProductRequired)
	}
	if d.Quantity < 1 {
		errs = append(errs, ErrQuantityInvalid)
	}
	if d.CostBasisMinor < 0 {
		errs = append(errs, ErrCostBasisNegative)
	}
	if d.MarkupFraction < 0 {
		errs = append(errs, ErrMarkupNegative)
	}
	if d.ShippingFeeMinor < 0 {
		errs = append(errs, ErrShippingNegative)
	}

	// Цена предложения зафиксирована при создании; сверяем с производной формулой.
	if d.OfferPriceMinor != OfferPrice(d.CostBasisMinor, d.MarkupFraction) {
		errs = append(errs, ErrOfferPriceMismatch)
	}
	if d.ExpiresAt.IsZero() {
		errs = append(errs, ErrExpiryRequired)
	}

	return errs
}

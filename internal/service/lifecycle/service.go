// Пакет lifecycle реализует машину состояний персонального предложения:
// создание, подтверждение, ленивое истечение и обработку платёжных
// уведомлений шлюза.
package lifecycle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/deals/internal/domain"
	"github.com/vladislavdragonenkov/deals/internal/gateway"
	"github.com/vladislavdragonenkov/deals/internal/metrics"
)

// Verifier проверяет входящее уведомление шлюза перед тем,
// как ему будет позволено двигать машину состояний.
type Verifier interface {
	Verify(ctx context.Context, n gateway.Notification, expectedGrossMinor int64) error
}

// Config — параметры ценообразования и сроков предложения.
type Config struct {
	// TTL — окно действия предложения с момента создания.
	TTL time.Duration
	// MarkupFraction — наценка на базовую стоимость товара.
	MarkupFraction float64
	// FreeShippingThresholdMinor — сумма, начиная с которой доставка бесплатна.
	FreeShippingThresholdMinor int64
	// ShippingFeeMinor — фиксированная стоимость доставки ниже порога.
	ShippingFeeMinor int64
	// IdempotencyTTL — срок хранения ключа обработанного уведомления.
	IdempotencyTTL time.Duration
}

// Service управляет жизненным циклом предложений.
type Service struct {
	cfg         Config
	deals       domain.DealRepository
	outbox      domain.OutboxRepository
	journal     domain.JournalRepository
	idempotency domain.IdempotencyRepository
	catalog     domain.CatalogService
	orders      domain.OrderSystem
	verifier    Verifier
	logger      *log.Entry
	metrics     *metrics.DealMetrics

	// now подменяется в тестах для контроля времени.
	now func() time.Time
}

// NewService создаёт рабочий экземпляр сервиса.
func NewService(
	cfg Config,
	deals domain.DealRepository,
	outbox domain.OutboxRepository,
	journal domain.JournalRepository,
	idempotency domain.IdempotencyRepository,
	catalog domain.CatalogService,
	orders domain.OrderSystem,
	verifier Verifier,
	logger *log.Entry,
) *Service {
	s := newService(cfg, deals, outbox, journal, idempotency, catalog, orders, verifier, logger)
	s.metrics = metrics.NewDealMetrics()
	return s
}

// NewServiceWithoutMetrics создаёт сервис без метрик (для тестов).
func NewServiceWithoutMetrics(
	cfg Config,
	deals domain.DealRepository,
	outbox domain.OutboxRepository,
	journal domain.JournalRepository,
	idempotency domain.IdempotencyRepository,
	catalog domain.CatalogService,
	orders domain.OrderSystem,
	verifier Verifier,
	logger *log.Entry,
) *Service {
	return newService(cfg, deals, outbox, journal, idempotency, catalog, orders, verifier, logger)
}

func newService(
	cfg Config,
	deals domain.DealRepository,
	outbox domain.OutboxRepository,
	journal domain.JournalRepository,
	idempotency domain.IdempotencyRepository,
	catalog domain.CatalogService,
	orders domain.OrderSystem,
	verifier Verifier,
	logger *log.Entry,
) *Service {
	if logger == nil {
		logger = log.WithField("component", "lifecycle")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 48 * time.Hour
	}
	return &Service{
		cfg:         cfg,
		deals:       deals,
		outbox:      outbox,
		journal:     journal,
		idempotency: idempotency,
		catalog:     catalog,
		orders:      orders,
		verifier:    verifier,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Create создаёт предложение для активного товара с остатком.
// Цена фиксируется в момент создания и далее не пересчитывается.
func (s *Service) Create(ctx context.Context, productID string, quantity int32) (domain.Deal, error) {
	if productID == "" {
		return domain.Deal{}, domain.ErrProductRequired
	}
	if quantity < 1 {
		return domain.Deal{}, domain.ErrQuantityInvalid
	}

	product, err := s.catalog.FindActiveProduct(ctx, productID)
	if err != nil {
		return domain.Deal{}, err
	}

	now := s.now()
	offerPrice := domain.OfferPrice(product.BaseCostMinor, s.cfg.MarkupFraction)

	deal := domain.Deal{
		Token:            uuid.NewString(),
		ProductID:        product.ID,
		SKU:              product.SKU,
		ProductName:      product.Name,
		CostBasisMinor:   product.BaseCostMinor,
		MarkupFraction:   s.cfg.MarkupFraction,
		OfferPriceMinor:  offerPrice,
		Quantity:         quantity,
		ShippingFeeMinor: s.shippingFee(offerPrice * int64(quantity)),
		ExpiresAt:        now.Add(s.cfg.TTL),
		Status:           domain.DealStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.deals.Create(deal); err != nil {
		return domain.Deal{}, err
	}

	// Прайс-лист попадает в событие: потребители показывают скидку
	// относительно обычной цены магазина.
	if product.SellingPriceMinor > 0 && offerPrice >= product.SellingPriceMinor {
		s.logger.WithFields(log.Fields{
			"token":       deal.Token,
			"offer_price": offerPrice,
			"list_price":  product.SellingPriceMinor,
		}).Warn("offer price is not below the list price")
	}

	if s.metrics != nil {
		s.metrics.RecordDealCreated()
	}
	s.emitEvent(&deal, "deal.created", map[string]interface{}{
		"product_id":  deal.ProductID,
		"offer_price": deal.OfferPriceMinor,
		"list_price":  product.SellingPriceMinor,
		"quantity":    deal.Quantity,
	})

	return deal, nil
}

// Get возвращает предложение, лениво переводя просроченное в expired.
func (s *Service) Get(ctx context.Context, token string) (domain.Deal, error) {
	if token == "" {
		return domain.Deal{}, domain.ErrTokenRequired
	}

	deal, err := s.deals.Get(token)
	if err != nil {
		return domain.Deal{}, err
	}

	return s.expireIfDue(deal), nil
}

// Accept подтверждает предложение: фиксирует контакты и адрес покупателя.
// Повторный вызов по уже подтверждённому предложению идемпотентен и
// не перегенерирует оффер.
func (s *Service) Accept(ctx context.Context, token string, buyer domain.Buyer, address domain.Address) (domain.Deal, error) {
	deal, err := s.Get(ctx, token)
	if err != nil {
		return domain.Deal{}, err
	}

	if deal.Status == domain.DealStatusExpired {
		return deal, domain.ErrDealExpired
	}
	if deal.Status == domain.DealStatusAccepted {
		return deal, nil
	}
	if deal.Status != domain.DealStatusPending {
		return deal, domain.ErrInvalidTransition
	}

	if buyer.Empty() {
		return deal, domain.ErrBuyerRequired
	}
	if address.Empty() {
		return deal, domain.ErrAddressRequired
	}

	product, err := s.catalog.FindActiveProduct(ctx, deal.ProductID)
	if err != nil {
		return deal, err
	}
	if product.Stock < deal.Quantity {
		return deal, domain.ErrInsufficientStock
	}

	deal.Buyer = buyer
	deal.Address = address
	if err := s.transition(&deal, domain.DealStatusAccepted); err != nil {
		return deal, err
	}

	if s.metrics != nil {
		s.metrics.RecordDealAccepted()
	}
	s.emitEvent(&deal, "deal.accepted", map[string]interface{}{
		"email": buyer.Email,
	})

	return deal, nil
}

// ProcessNotification проверяет уведомление шлюза и двигает машину состояний.
// Возвращаемая ошибка предназначена для журнала: HTTP-обработчик всё равно
// подтверждает приём шлюзу.
func (s *Service) ProcessNotification(ctx context.Context, n gateway.Notification) error {
	start := s.now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordConfirmDuration(s.now().Sub(start))
		}
	}()

	deal, err := s.Get(ctx, n.Token)
	if err != nil {
		s.rejectNotification(n, "unknown_token", err)
		return err
	}

	// Быстрый dedupe по id платежа; сам по себе он не обязателен —
	// корректность гарантирует проверка статуса ниже.
	fresh, dedupeErr := s.claimNotification(n)
	if dedupeErr != nil {
		s.rejectNotification(n, "dedupe_failure", dedupeErr)
	} else if !fresh {
		s.logger.WithFields(log.Fields{
			"token":         n.Token,
			"pf_payment_id": n.PaymentID,
		}).Info("duplicate notification ignored")
		return nil
	}

	if err := s.verifier.Verify(ctx, n, deal.GrossMinor()); err != nil {
		s.rejectNotification(n, rejectionReason(err), err)
		s.finishNotification(n, false)
		return err
	}

	switch n.Status {
	case gateway.PaymentStatusComplete:
		err = s.confirmPayment(ctx, deal.Token, n)
	case gateway.PaymentStatusCancelled:
		err = s.cancelDeal(deal.Token, n)
	default:
		s.journalAppend(n.Token, "notification.unhandled_status", n.Status)
		err = nil
	}

	s.finishNotification(n, err == nil)
	return err
}

// confirmPayment переводит подтверждённое предложение в paid и выполняет
// побочные эффекты строго один раз: списание остатка и создание заказа
// во внешней системе. Повторный вызов по оплаченному предложению — no-op.
func (s *Service) confirmPayment(ctx context.Context, token string, n gateway.Notification) error {
	deal, err := s.Get(ctx, token)
	if err != nil {
		return err
	}

	// Статусный guard — источник идемпотентности confirmPayment.
	if deal.Status == domain.DealStatusPaid {
		return nil
	}
	if deal.Status == domain.DealStatusExpired {
		s.journalAppend(token, "notification.late_payment", "deal expired before confirmation")
		return domain.ErrDealExpired
	}
	if deal.Status != domain.DealStatusAccepted {
		return domain.ErrInvalidTransition
	}

	deal.ExternalPaymentRef = n.PaymentID
	if err := s.transition(&deal, domain.DealStatusPaid); err != nil {
		// Конкурирующее уведомление могло успеть первым.
		if errors.Is(err, domain.ErrInvalidTransition) {
			refreshed, getErr := s.deals.Get(token)
			if getErr == nil && refreshed.Status == domain.DealStatusPaid {
				return nil
			}
		}
		return err
	}

	if s.metrics != nil {
		s.metrics.RecordDealPaid()
	}
	s.emitEvent(&deal, "deal.paid", map[string]interface{}{
		"external_payment_ref": n.PaymentID,
		"gross_minor":          deal.GrossMinor(),
	})

	// Побочные эффекты после выигранного перехода: сюда попадает ровно
	// один обработчик данного токена.
	if err := s.catalog.DecrementStock(ctx, deal.ProductID, deal.Quantity); err != nil {
		s.logger.WithError(err).WithField("token", token).Warn("stock decrement failed")
		s.journalAppend(token, "stock.decrement_failed", err.Error())
	}

	s.createDownstreamOrder(ctx, &deal)
	if deal.DownstreamOrderRef == "" && s.metrics != nil {
		s.metrics.RecordReconcilePending()
	}
	return nil
}

// CreateDownstreamOrder повторяет создание заказа во внешней системе
// для оплаченного предложения без заказа. Используется воркером сверки.
func (s *Service) CreateDownstreamOrder(ctx context.Context, token string) error {
	deal, err := s.deals.Get(token)
	if err != nil {
		return err
	}
	if deal.Status != domain.DealStatusPaid {
		return domain.ErrInvalidTransition
	}
	if deal.DownstreamOrderRef != "" {
		return nil
	}

	s.createDownstreamOrder(ctx, &deal)
	if deal.DownstreamOrderRef == "" {
		return domain.ErrIntegrationFailure
	}
	if s.metrics != nil {
		s.metrics.RecordReconcileResolved()
	}
	return nil
}

func (s *Service) createDownstreamOrder(ctx context.Context, deal *domain.Deal) {
	line := domain.OrderLine{
		SKU:       deal.SKU,
		Name:      deal.ProductName,
		Qty:       deal.Quantity,
		UnitMinor: deal.OfferPriceMinor,
	}
	meta := domain.PaymentMeta{
		ExternalRef: deal.ExternalPaymentRef,
		GrossMinor:  deal.GrossMinor(),
		PaidAt:      s.now(),
	}

	orderID, err := s.orders.CreateOrder(ctx, deal.Buyer, deal.Address, line, meta)
	if err != nil {
		// Сбой интеграции никогда не откатывает оплату: фиксируем задачу
		// сверки и двигаемся дальше.
		s.logger.WithError(err).WithField("token", deal.Token).Warn("downstream order creation failed")
		s.journalAppend(deal.Token, "order.create_failed", err.Error())
		s.emitEvent(deal, "order.create_requested", map[string]interface{}{
			"external_payment_ref": deal.ExternalPaymentRef,
			"gross_minor":          deal.GrossMinor(),
			"reason":               err.Error(),
		})
		return
	}

	deal.DownstreamOrderRef = orderID
	if err := s.save(deal); err != nil {
		s.logger.WithError(err).WithField("token", deal.Token).Warn("persist downstream order ref failed")
	}
	s.journalAppend(deal.Token, "order.created", orderID)
}

func (s *Service) cancelDeal(token string, n gateway.Notification) error {
	deal, err := s.deals.Get(token)
	if err != nil {
		return err
	}

	if deal.Status == domain.DealStatusCancelled {
		return nil
	}
	if deal.Status.Terminal() {
		return domain.ErrInvalidTransition
	}

	deal.ExternalPaymentRef = n.PaymentID
	if err := s.transition(&deal, domain.DealStatusCancelled); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.RecordDealCancelled()
	}
	s.emitEvent(&deal, "deal.cancelled", map[string]interface{}{
		"external_payment_ref": n.PaymentID,
	})
	return nil
}

// expireIfDue лениво переводит просроченное предложение в expired.
// Фиксация в хранилище best-effort: проигранный CAS означает, что
// кто-то другой уже обновил запись.
func (s *Service) expireIfDue(deal domain.Deal) domain.Deal {
	if deal.Status.Terminal() || !deal.ExpiredAt(s.now()) {
		return deal
	}

	persisted := deal
	if err := s.transition(&persisted, domain.DealStatusExpired); err != nil {
		if fresh, getErr := s.deals.Get(deal.Token); getErr == nil {
			return fresh
		}
		deal.Status = domain.DealStatusExpired
		return deal
	}

	if s.metrics != nil {
		s.metrics.RecordDealExpired()
	}
	s.emitEvent(&persisted, "deal.expired", nil)
	return persisted
}

// transition применяет переход статуса с optimistic locking.
// При конфликте версий запись перечитывается и попытка повторяется
// с экспоненциальной задержкой; переходы из конечных статусов запрещены.
func (s *Service) transition(deal *domain.Deal, newStatus domain.DealStatus) error {
	const maxRetries = 3
	const baseDelay = 10 * time.Millisecond

	for attempt := 0; attempt < maxRetries; attempt++ {
		if deal.Status.Terminal() {
			return domain.ErrInvalidTransition
		}

		previousStatus := deal.Status
		deal.Status = newStatus
		deal.UpdatedAt = s.now()

		err := s.deals.Save(*deal)
		if err == nil {
			deal.Version++
			return nil
		}

		if domain.IsVersionConflict(err) && attempt < maxRetries-1 {
			s.logger.WithFields(log.Fields{
				"token":   deal.Token,
				"attempt": attempt + 1,
				"version": deal.Version,
			}).Warn("version conflict detected, retrying")

			fresh, loadErr := s.deals.Get(deal.Token)
			if loadErr != nil {
				s.logger.WithError(loadErr).WithField("token", deal.Token).Error("failed to reload deal after conflict")
				return loadErr
			}

			// Переносим на свежую версию незафиксированные изменения вызова.
			fresh.Buyer = deal.Buyer
			fresh.Address = deal.Address
			if deal.ExternalPaymentRef != "" {
				fresh.ExternalPaymentRef = deal.ExternalPaymentRef
			}
			*deal = fresh

			time.Sleep(baseDelay * time.Duration(1<<uint(attempt)))
			continue
		}

		deal.Status = previousStatus
		return err
	}

	return domain.ErrDealVersionConflict
}

func (s *Service) save(deal *domain.Deal) error {
	deal.UpdatedAt = s.now()
	if err := s.deals.Save(*deal); err != nil {
		return err
	}
	deal.Version++
	return nil
}

func (s *Service) shippingFee(subtotalMinor int64) int64 {
	if s.cfg.FreeShippingThresholdMinor > 0 && subtotalMinor >= s.cfg.FreeShippingThresholdMinor {
		return 0
	}
	return s.cfg.ShippingFeeMinor
}

// claimNotification регистрирует id платежа как обрабатываемый.
// Возвращает false, если уведомление уже видели. Блокируют только
// завершённая (done) и ещё идущая (processing) обработка: ключ после
// неудачной проверки перехватывается заново, иначе ретрай шлюза после
// временного сбоя никогда не дошёл бы до верификации.
func (s *Service) claimNotification(n gateway.Notification) (bool, error) {
	if s.idempotency == nil || n.PaymentID == "" {
		return true, nil
	}

	ttlAt := s.now().Add(s.cfg.IdempotencyTTL)
	record, err := s.idempotency.CreateProcessing(n.PaymentID, notificationHash(n), ttlAt)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists) && !errors.Is(err, domain.ErrIdempotencyHashMismatch) {
		return true, err
	}

	if record.Status != domain.IdempotencyStatusFailed {
		return false, nil
	}

	if _, err := s.idempotency.Reclaim(n.PaymentID, notificationHash(n), ttlAt); err != nil {
		if errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists) {
			// Конкурирующий обработчик успел перехватить ключ первым.
			return false, nil
		}
		return true, err
	}
	return true, nil
}

func (s *Service) finishNotification(n gateway.Notification, ok bool) {
	if s.idempotency == nil || n.PaymentID == "" {
		return
	}

	var err error
	if ok {
		err = s.idempotency.MarkDone(n.PaymentID, nil, 200)
	} else {
		err = s.idempotency.MarkFailed(n.PaymentID, nil, 200)
	}
	if err != nil && !errors.Is(err, domain.ErrIdempotencyKeyNotFound) {
		s.logger.WithError(err).WithField("pf_payment_id", n.PaymentID).Warn("idempotency status update failed")
	}
}

// rejectNotification фиксирует отклонённое уведомление для ручной сверки.
func (s *Service) rejectNotification(n gateway.Notification, reason string, cause error) {
	s.logger.WithError(cause).WithFields(log.Fields{
		"token":  n.Token,
		"reason": reason,
	}).Warn("notification rejected")

	if s.metrics != nil {
		s.metrics.RecordNotificationRejected(reason)
	}
	s.journalAppend(n.Token, "notification.rejected", reason+": "+cause.Error())
}

func (s *Service) journalAppend(token, eventType, reason string) {
	if s.journal == nil {
		return
	}
	event := domain.JournalEvent{
		Token:    token,
		Type:     eventType,
		Reason:   reason,
		Occurred: s.now(),
	}
	if err := s.journal.Append(event); err != nil {
		s.logger.WithError(err).WithField("token", token).Error("journal append failed")
	} else if s.metrics != nil {
		s.metrics.RecordJournalEvent()
	}
}

func (s *Service) emitEvent(deal *domain.Deal, eventType string, payload map[string]interface{}) {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	payload["token"] = deal.Token
	payload["status"] = string(deal.Status)

	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"token": deal.Token,
			"event": eventType,
		}).Error("marshal event failed")
		return
	}

	msg := domain.OutboxMessage{
		AggregateType: "deal",
		AggregateID:   deal.Token,
		EventType:     eventType,
		Payload:       data,
	}
	if _, err := s.outbox.Enqueue(msg); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"token": deal.Token,
			"event": eventType,
		}).Error("enqueue event failed")
	} else if s.metrics != nil {
		s.metrics.RecordOutboxEvent()
	}

	s.journalAppend(deal.Token, eventType, "")
}

func rejectionReason(err error) string {
	if !domain.IsTerminalRejection(err) {
		return "internal"
	}
	switch {
	case errors.Is(err, domain.ErrOriginRejected):
		return "origin"
	case errors.Is(err, domain.ErrSignatureMismatch):
		return "signature"
	case errors.Is(err, domain.ErrAmountMismatch):
		return "amount"
	default:
		return "gateway"
	}
}

// notificationHash детерминированно хэширует присланные поля для
// сравнения повторов одного и того же ключа идемпотентности.
func notificationHash(n gateway.Notification) string {
	names := make([]string, 0, len(n.Raw))
	for name := range n.Raw {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(n.Raw[name])
		b.WriteByte('&')
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

package domain

// DealRepository описывает требования к хранилищу предложений.
type DealRepository interface {
	// Create сохраняет новое предложение. Возвращает ErrDealExists, если токен занят.
	Create(deal Deal) error
	// Get возвращает предложение по токену или ErrDealNotFound, если его нет.
	Get(token string) (Deal, error)
	// Save применяет обновления к предложению с учётом optimistic locking.
	Save(deal Deal) error
}

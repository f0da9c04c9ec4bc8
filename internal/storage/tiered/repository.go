// Пакет tiered объединяет быстрый локальный слой и долговременный удалённый
// слой хранилища предложений. Запись в локальный слой обязана пройти; запись
// в удалённый слой — best-effort: её отказ логируется, но не отменяет успех.
// Чтение идёт сначала в локальный слой, промах добирается из удалённого
// с обратным заполнением.
package tiered

import (
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/deals/internal/domain"
)

type repository struct {
	local  domain.DealRepository
	remote domain.DealRepository
	logger *log.Entry
}

// NewRepository собирает двухуровневое хранилище предложений.
func NewRepository(local, remote domain.DealRepository, logger *log.Entry) domain.DealRepository {
	if logger == nil {
		logger = log.WithField("component", "tiered-store")
	}
	return &repository{
		local:  local,
		remote: remote,
		logger: logger,
	}
}

// Create сохраняет предложение в оба слоя.
func (r *repository) Create(deal domain.Deal) error {
	if err := r.local.Create(deal); err != nil {
		return err
	}

	if err := r.remote.Create(deal); err != nil && !errors.Is(err, domain.ErrDealExists) {
		r.logger.WithError(err).WithField("token", deal.Token).Warn("remote tier create failed")
	}
	return nil
}

// Get читает локальный слой, на промахе обращается к удалённому
// и заполняет локальный слой найденной записью.
func (r *repository) Get(token string) (domain.Deal, error) {
	deal, err := r.local.Get(token)
	if err == nil {
		return deal, nil
	}
	if !errors.Is(err, domain.ErrDealNotFound) {
		r.logger.WithError(err).WithField("token", token).Warn("local tier read failed")
	}

	deal, err = r.remote.Get(token)
	if err != nil {
		return domain.Deal{}, err
	}

	if backfillErr := r.local.Create(deal); backfillErr != nil && !errors.Is(backfillErr, domain.ErrDealExists) {
		r.logger.WithError(backfillErr).WithField("token", token).Warn("local tier backfill failed")
	}
	return deal, nil
}

// Save применяет обновление к локальному слою и пишет насквозь в удалённый.
func (r *repository) Save(deal domain.Deal) error {
	if err := r.local.Save(deal); err != nil {
		return err
	}

	if err := r.remote.Save(deal); err != nil {
		if errors.Is(err, domain.ErrDealNotFound) {
			// Удалённый слой мог не видеть Create; восстанавливаем запись.
			restored := deal
			restored.Version++
			if createErr := r.remote.Create(restored); createErr != nil {
				r.logger.WithError(createErr).WithField("token", deal.Token).Warn("remote tier restore failed")
			}
			return nil
		}
		r.logger.WithError(err).WithField("token", deal.Token).Warn("remote tier save failed")
	}
	return nil
}

var _ domain.DealRepository = (*repository)(nil)

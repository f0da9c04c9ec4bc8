package domain

import "time"

// JournalEvent описывает событие в жизненном цикле предложения.
// Reason заполняется для отказов (подпись, сумма, origin, отклонение шлюза)
// и для незавершённой интеграции с системой заказов.
type JournalEvent struct {
	Token    string
	Type     string
	Reason   string
	Occurred time.Time
}

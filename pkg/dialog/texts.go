package dialog

import (
	"fmt"
	"time"
)

// openingTurnText is the synthetic user text of the first turn; the real
// conversation opener comes from the generator.
const openingTurnText = "начало диалога"

const (
	welcomeText = "Этот бот предназначен для тестирования промта нейропродажника, " +
		"проведите с ботом ролевой диалог в котором вы выступаете в качестве " +
		"HR специалиста или работника кадров"

	pleaseStartText = "Пожалуйста, начните диалог с команды /start"

	apologyText = "Извините, произошла ошибка. Попробуйте еще раз."

	finishedText = "🎯 Диалог завершен! Оставьте, пожалуйста, отзыв о переписке — " +
		"он попадет в отчет. Нажмите /start для начала нового диалога."

	successText = "🎯 Отличная работа! Оставьте, пожалуйста, отзыв о переписке — " +
		"он попадет в отчет. Нажмите /start для начала нового диалога."

	feedbackThanksText = "Спасибо за отзыв! Нажмите /start для начала нового диалога."

	resetText = "Диалог сброшен. Используйте /start для начала нового диалога."

	noSessionText = "Активный диалог не найден"

	emptyProfileText = "Профиль пока не заполнен"

	emptyHistoryText = "История диалога пуста"
)

// TimeoutNotice is the message sent to a user whose dialog the reaper
// finished.
func TimeoutNotice(timeout time.Duration) string {
	return fmt.Sprintf(
		"Диалог автоматически завершен из-за неактивности (%d минут). "+
			"Используйте /start для начала нового диалога.",
		int(timeout.Minutes()),
	)
}

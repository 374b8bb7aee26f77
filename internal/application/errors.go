package app

import "errors"

var (
	// ErrInputAcquisition ошибка получения входных данных: снимок не прочитан,
	// детектор недоступен или вернул ошибку. До диагностики дело не доходит.
	ErrInputAcquisition = errors.New("input acquisition failed")

	// ErrDetectorNotConfigured детектор не подключён.
	ErrDetectorNotConfigured = errors.New("detector is not configured")

	// ErrUserBusy предыдущий снимок пользователя ещё обрабатывается.
	ErrUserBusy = errors.New("previous radiograph is still processing")

	// ErrNotAwaiting снимок пришёл без предварительного /check.
	ErrNotAwaiting = errors.New("radiograph was not requested")
)

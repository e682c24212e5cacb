package bot

// User error messages (user mistakes, shown directly)
const (
	MsgPollAlreadyExists = "Уже есть активный опрос. Сначала закройте его командой /deactivate"
	MsgNoActivePoll      = "Активных опросов нет."
	MsgUnknownPollType   = "Такой опрос не настроен для этого чата."
	MsgHistoryEmpty      = "История опросов пуста."
	MsgWeatherDisabled   = "Погода не настроена."
)

// System error messages (internal errors, hide details from user)
const (
	MsgInternalError       = "Произошла внутренняя ошибка. Попробуйте позже."
	MsgFailedCreatePoll    = "Не удалось создать опрос. Попробуйте ещё раз."
	MsgFailedClosePoll     = "Не удалось закрыть опрос. Попробуйте ещё раз."
	MsgFailedGetHistory    = "Не удалось получить историю. Попробуйте ещё раз."
	MsgFailedExportHistory = "Не удалось выгрузить историю. Попробуйте ещё раз."
	MsgFailedSendWeather   = "Не удалось получить погоду. Попробуйте позже."
)

// Confirmations
const (
	MsgPollDeactivated = "Активный опрос деактивирован."
)

package model

// TicketStatus — статус билета загрузки.
// Переходы: uploading -> success либо uploading -> error,
// из терминального статуса возврата нет.
type TicketStatus string

const (
	// TicketUploading — загрузка идёт
	TicketUploading TicketStatus = "uploading"
	// TicketSuccess — загрузка завершена, запись сохранена
	TicketSuccess TicketStatus = "success"
	// TicketError — загрузка не удалась
	TicketError TicketStatus = "error"
)

// UploadTicket — транзитный объект одной имитируемой загрузки.
// Создаётся при приёме файла, удаляется из видимого набора через
// фиксированную задержку после достижения терминального статуса.
type UploadTicket struct {
	// ID — UUID билета
	ID string `json:"id"`
	// Name — имя загружаемого файла
	Name string `json:"name"`
	// Size — размер файла в байтах
	Size int64 `json:"size"`
	// Progress — прогресс 0–100, растёт монотонно
	Progress int `json:"progress"`
	// Status — текущий статус билета
	Status TicketStatus `json:"status"`
	// Error — сообщение об ошибке (только при статусе error)
	Error string `json:"error,omitempty"`
}

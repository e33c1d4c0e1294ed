package communicator

const separator = ": "

// ChatMessage - пара (отправитель, текст), живет только до отправки
type ChatMessage struct {
	Sender string
	Body   string
}

func (m ChatMessage) String() string {
	return m.Sender + separator + m.Body
}

// Encode возвращает полезную нагрузку датаграммы: "<sender>: <body>" в UTF-8
func (m ChatMessage) Encode() []byte {
	return []byte(m.String())
}

// Decode превращает принятые байты обратно в строку. Отправитель не отделяется.
func Decode(payload []byte) string {
	return string(payload)
}

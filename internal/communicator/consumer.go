package communicator

// Consumer получает входящие строки и ошибки.
// Вызывается и из горутины слушателя, и из горутины отправителя.
type Consumer interface {
	ReceiveMessage(text string)
	Error(err error)
}

// Funcs адаптирует пару функций к Consumer. Пустые поля игнорируются.
type Funcs struct {
	OnMessage func(text string)
	OnError   func(err error)
}

func (f Funcs) ReceiveMessage(text string) {
	if f.OnMessage != nil {
		f.OnMessage(text)
	}
}

func (f Funcs) Error(err error) {
	if f.OnError != nil {
		f.OnError(err)
	}
}

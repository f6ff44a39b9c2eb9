package notify

// Notifier — получатель событий бота.
type Notifier interface {
	Notify(event, text string)
}

// Fanout рассылает событие всем получателям.
type Fanout []Notifier

func (f Fanout) Notify(event, text string) {
	for _, n := range f {
		if n != nil {
			n.Notify(event, text)
		}
	}
}

// Func превращает функцию в Notifier.
type Func func(event, text string)

func (fn Func) Notify(event, text string) { fn(event, text) }

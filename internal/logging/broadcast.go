package logging

import (
	"fmt"
	"time"

	"go.uber.org/zap/zapcore"
)

// Entry — запись лога для консоли дашборда.
type Entry struct {
	Time    time.Time
	Level   string
	Message string
	Logger  string
	Bot     string // значение поля "bot", если есть
	Fields  map[string]any
}

// Sink принимает записи. Broadcast не должен блокировать.
type Sink interface {
	Broadcast(e Entry)
}

type broadcastCore struct {
	zapcore.LevelEnabler
	sink   Sink
	fields []zapcore.Field
}

// NewBroadcastCore — zapcore.Core, который отдаёт каждую запись в sink.
func NewBroadcastCore(sink Sink, level zapcore.LevelEnabler) zapcore.Core {
	return &broadcastCore{LevelEnabler: level, sink: sink}
}

func (c *broadcastCore) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.fields = append(append([]zapcore.Field(nil), c.fields...), fields...)
	return &clone
}

func (c *broadcastCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *broadcastCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}
	e := Entry{
		Time:    ent.Time,
		Level:   ent.Level.String(),
		Message: ent.Message,
		Logger:  ent.LoggerName,
		Fields:  enc.Fields,
	}
	if v, ok := enc.Fields["bot"]; ok {
		e.Bot = fmt.Sprint(v)
		delete(e.Fields, "bot")
	}
	c.sink.Broadcast(e)
	return nil
}

func (c *broadcastCore) Sync() error { return nil }

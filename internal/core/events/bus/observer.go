package bus

import (
	"time"

	"github.com/zeusync/eca/internal/core/observability/log"
)

var _ Observer = (*LogObserver)(nil)

// LogObserver logs every delivery at debug level. Registering it also turns on
// the bus metrics.
type LogObserver struct {
	log log.Log
}

func NewLogObserver(l log.Log) *LogObserver {
	if l == nil {
		l = log.Provide()
	}
	return &LogObserver{log: l.Named("bus")}
}

func (o *LogObserver) OnPublish(string, string, Event) {}

func (o *LogObserver) OnDelivered(topic, eventType string, handlers int, err error, durationMicros int64) {
	fields := []log.Field{
		log.String("topic", topic),
		log.String("type", eventType),
		log.Int("handlers", handlers),
		log.Duration("took", time.Duration(durationMicros)*time.Microsecond),
	}
	if err != nil {
		fields = append(fields, log.Error(err))
	}
	o.log.Debug("Delivered", fields...)
}

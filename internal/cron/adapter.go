package cron

import (
	"fmt"

	"github.com/aatumaykin/microbot/internal/logger"
	robfig "github.com/robfig/cron/v3"
)

// logAdapter реализует robfig cron.Logger поверх нашего logger
type logAdapter struct {
	logger *logger.Logger
}

var _ robfig.Logger = logAdapter{}

// Info пишет служебные сообщения планировщика на уровне debug
func (a logAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Debug("cron: "+msg, pairsToFields(keysAndValues)...)
}

// Error пишет ошибки планировщика (в том числе пойманные паники)
func (a logAdapter) Error(err error, msg string, keysAndValues ...interface{}) {
	a.logger.Error("cron: "+msg, err, pairsToFields(keysAndValues)...)
}

func pairsToFields(kv []interface{}) []logger.Field {
	fields := make([]logger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields = append(fields, logger.Field{Key: fmt.Sprint(kv[i]), Value: kv[i+1]})
	}
	return fields
}

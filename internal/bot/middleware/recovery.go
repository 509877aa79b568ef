package middleware

import (
	"fmt"
	"runtime/debug"

	log "github.com/sirupsen/logrus"
)

// RecoverFromPanic вызывается через defer. fields попадают в лог,
// onPanic (если задан) вызывается после восстановления.
func RecoverFromPanic(fields log.Fields, onPanic func()) {
	if r := recover(); r != nil {
		log.WithFields(fields).WithFields(log.Fields{
			"component": "panic_recovery",
			"panic":     fmt.Sprintf("%v", r),
			"stack":     string(debug.Stack()),
		}).Error("ПАНИКА в обработчике — восстановлено")
		if onPanic != nil {
			onPanic()
		}
	}
}

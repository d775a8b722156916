package infra

import (
	"fmt"
	"runtime"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Recover runs f and turns a panic into an error carrying the panic location.
func Recover(id string, f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			where := identifyPanic()
			log.WithFields(log.Fields{"job": id, "at": where}).Errorf("recovered panic: %v", r)
			err = fmt.Errorf("job %s panicked at %s: %v", id, where, r)
		}
	}()
	return f()
}

func identifyPanic() string {
	var pc [16]uintptr
	n := runtime.Callers(3, pc[:])
	frames := runtime.CallersFrames(pc[:n])
	for {
		frame, more := frames.Next()
		if frame.Function != "" && !strings.HasPrefix(frame.Function, "runtime.") {
			return fmt.Sprintf("%s:%d", frame.Function, frame.Line)
		}
		if !more {
			return "unknown"
		}
	}
}

package rvm

import (
	"sync"

	"go-rvm/internal/base/log"
)

// fatalLogger returns a process-wide fallback Logger for fatal errors that
// have no Engine or Transaction context to log through yet, such as an
// AboutToModify/Commit/Abort call naming a transaction id that was never
// issued. Everything else logs through its own context logger.
func fatalLogger() log.Logger {
	fatalLoggerOnce.Do(func() {
		backend := &log.SimpleFileLog{}
		if err := backend.Initialize("/dev/stderr"); err != nil {
			panic(err)
		}
		fatalLoggerInst = backend.NewLogger("rvm")
	})
	return fatalLoggerInst
}

var (
	fatalLoggerOnce sync.Once
	fatalLoggerInst log.Logger
)

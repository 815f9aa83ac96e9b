package pkg

import (
	"fmt"
	"github.com/ansel1/merry"
	"github.com/powerman/structlog"
	"path/filepath"
	"runtime"
)

// PrintMerryStacktrace prints the error's stacktrace formatted the same way
// as golangs runtime package. If e has no stacktrace, prints nothing.
func PrintMerryStacktrace(log *structlog.Logger, e error) {
	for i, fp := range merry.Stack(e) {
		fnc := runtime.FuncForPC(fp)
		if fnc != nil {
			f, l := fnc.FileLine(fp)
			name := filepath.Base(fnc.Name())
			ident := " "
			if i > 0 {
				ident = "\t"
			}
			log.PrintErr(fmt.Sprintf("%s%s:%d %s", ident, f, l, name))
		}
	}
}

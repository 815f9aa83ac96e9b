package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/opgrid/rtacgen/internal/pkg"
	"github.com/powerman/structlog"
)

var log = structlog.New()

// Main is the application entry point: one positional argument, the path to
// the point map workbook.
func Main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <workbook.xlsx>\n", filepath.Base(os.Args[0]))
		os.Exit(2)
	}
	if err := Generate(os.Args[1]); err != nil {
		log.PrintErr(err)
		pkg.PrintMerryStacktrace(log, err)
		os.Exit(1)
	}
}

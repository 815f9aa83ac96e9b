package main

import (
	"github.com/opgrid/rtacgen/internal/app"
	"github.com/opgrid/rtacgen/internal/pkg"
)

func main() {
	pkg.InitLog()
	app.Main()
}

package main

import (
	"go.uber.org/fx"

	"github.com/badrx15/ibericosgourmet/internal/app"
)

func main() {
	fx.New(app.Module).Run()
}

//go:build wireinject

package runlens

import (
	"github.com/google/wire"
)

func InitApp(args *Args) (*App, func(), error) {
	panic(wire.Build(Wires))
}

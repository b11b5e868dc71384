//go:build wireinject
// +build wireinject

package engine

import (
	"github.com/google/wire"
	"github.com/plus3/rtx/render"
)

func InitializeApplication(cfg *Config, device render.Device) (*Application, func(), error) {
	wire.Build(ProviderSet)
	return nil, nil, nil
}

package main

import (
	"go.viam.com/rdk/module"
	"go.viam.com/rdk/resource"
	"go.viam.com/rdk/services/discovery"
	"go.viam.com/rdk/services/generic"

	"ikarm"
)

func main() {
	module.ModularMain(
		resource.APIModel{API: generic.API, Model: ikarm.Model},
		resource.APIModel{API: discovery.API, Model: ikarm.LinksDiscoveryModel},
	)
}

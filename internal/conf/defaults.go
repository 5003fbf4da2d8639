// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)
	viper.SetDefault("workingdir", ".")

	viper.SetDefault("main.name", "xrfmap")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "xrfmap.log")
	viper.SetDefault("main.log.rotation", RotationDaily)
	viper.SetDefault("main.log.maxsize", 1048576)

	viper.SetDefault("processing.chunkpixels", 5000)
	viper.SetDefault("processing.minchunks", 4)
	viper.SetDefault("processing.workers", 0)

	viper.SetDefault("fit.paramfile", "")
	viper.SetDefault("fit.channeleach", false)
	viper.SetDefault("fit.usesnip", true)
	viper.SetDefault("fit.incidentenergy", 0.0)

	viper.SetDefault("mask.mode", MaskModeNone)
	viper.SetDefault("mask.p1row", 0)
	viper.SetDefault("mask.p1col", 0)
	viper.SetDefault("mask.p2row", 0)
	viper.SetDefault("mask.p2col", 0)
	viper.SetDefault("mask.file", "")

	viper.SetDefault("output.dir", "")
	viper.SetDefault("output.savetxt", false)
	viper.SetDefault("output.savetiff", true)

	viper.SetDefault("catalog.enabled", true)
	viper.SetDefault("catalog.path", "runs.db")
}

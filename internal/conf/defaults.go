// defaults.go default values for settings
package conf

import "github.com/spf13/viper"

// setDefaults registers the default configuration values with viper.
func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("taxonomy.database", "taxonomy.db")

	v.SetDefault("cache.database", "cache.db")

	v.SetDefault("images.path", "images")
	v.SetDefault("images.maxbytes", int64(256*1024*1024))
	v.SetDefault("images.quality", "hd")

	v.SetDefault("connectivity.probeurl", "https://api.gbif.org/v1/")
	v.SetDefault("connectivity.probettl", 60)

	v.SetDefault("providers.timeout", 20)
	v.SetDefault("providers.useragent", "")
	v.SetDefault("providers.gbif.endpoint", "https://api.gbif.org/v1")
	v.SetDefault("providers.wikipedia.endpoint", "https://en.wikipedia.org/w/api.php")
	v.SetDefault("providers.wikipedia.language", "en")
	v.SetDefault("providers.inaturalist.endpoint", "https://api.inaturalist.org/v1")
}

// Package autoload initializes the global logger from LOGGER_* environment
// variables as a side effect of being imported.
package autoload

import (
	"github.com/kelseyhightower/envconfig"

	logx "github.com/tanpawarit/jtcg-crm-agent/pkg/logger"
)

func init() {
	var conf logx.Config
	if err := envconfig.Process("LOGGER", &conf); err != nil {
		logx.Init()
		return
	}
	logx.Init(conf)
}

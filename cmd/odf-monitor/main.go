package main

import (
	"os"

	"github.com/odfmonitor/odf-monitor/pkg/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logger.Errorf("%v", err)
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}

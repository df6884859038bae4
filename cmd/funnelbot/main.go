package main

import (
	"log"

	"github.com/m3rciful/funnelbot/bot"
	corecmd "github.com/m3rciful/funnelbot/core/cmd"
)

func main() {
	err := corecmd.Run(corecmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return bot.LoadConfig(path)
		},
		Bootstrap: bot.Bootstrap,
	})
	if err != nil {
		log.Fatalf("funnelbot: %v", err)
	}
}

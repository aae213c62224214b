package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/voicetranslator/internal/config"
	"github.com/dmitrijs2005/voicetranslator/internal/processor"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := processor.NewApp(ctx, cfg)

	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)

}

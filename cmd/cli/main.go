package main

import (
	"context"
	"os"

	"github.com/dmitrijs2005/voicetranslator/internal/cli"
)

func main() {
	os.Exit(cli.Main(context.Background()))
}

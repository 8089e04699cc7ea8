// Command tunecrawld runs the tunecrawl daemon in serve mode. The
// configuration path may be given with TUNECRAWL_CONFIG; otherwise the
// default search applies.
package main

import (
	"context"
	"log"
	"os"

	"tunecrawl/internal/config"
	"tunecrawl/internal/daemonrun"
)

func main() {
	cfg, _, _, err := config.Load(os.Getenv("TUNECRAWL_CONFIG"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{Mode: daemonrun.ModeServe}); err != nil {
		log.Fatalf("tunecrawld: %v", err)
	}
}

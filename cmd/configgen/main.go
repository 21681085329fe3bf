package main

import (
	"flag"
	"log"

	"github.com/danmuck/unrealctl/internal/config"
)

func main() {
	output := flag.String("output", "unrealctl.toml", "output path for the config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", "", "config path for validation (defaults to -output)")
	force := flag.Bool("force", false, "overwrite an existing config file")
	flag.Parse()

	if *validate {
		path := *input
		if path == "" {
			path = *output
		}
		if _, _, err := config.LoadFile(path); err != nil {
			log.Fatal(err)
		}
		log.Printf("Validated config at %s", path)
		return
	}

	if err := config.WriteTemplate(*output, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote config template to %s", *output)
}

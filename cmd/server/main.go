package main

import (
	"log"

	"github.com/clubsite/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		log.Fatalf("clubsite: %v", err)
	}
}

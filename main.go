package main

import (
	"os"

	"blogfeed/service"

	log "github.com/sirupsen/logrus"
)

var exit = os.Exit

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if code := service.HandleCommand(os.Args[1:]); code != 0 {
		exit(code)
	}
}

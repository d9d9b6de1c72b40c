// Command memo is a terminal front end for a Chat Memo server.
//
//	memo login me@example.com
//	memo snippet new "Prompt ideas"
//	memo msg add <snippet-id> "Summarize this thread" --ai Claude
package main

import (
	"os"

	"github.com/charmbracelet/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

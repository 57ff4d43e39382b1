// Command catalog runs the item catalog web application.
//
//	catalog serve              start the HTTP server
//	catalog migrate            apply database migrations
//	catalog user create ...    create a local account
//
// Settings come from the environment (optionally a .env file) and flags;
// see internal/config for the full list.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

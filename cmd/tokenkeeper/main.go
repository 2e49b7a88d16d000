// Command tokenkeeper runs the authentication service.
package main

import (
	"fmt"
	"os"

	"github.com/MrEthical07/tokenkeeper/internal/app"
)

func main() {
	if err := app.Run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

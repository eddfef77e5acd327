// main - main entry-point to momo-go commands through cobra
// individual commands are outlined in ./cmd/ and ./services/*/cmd/
package main

import (
	"github.com/brave-intl/momo-go/cmd"
	"github.com/brave-intl/momo-go/libs/logging"

	// pull in the transactions cli
	_ "github.com/brave-intl/momo-go/cmd/transactions"
	// pull in the momo service
	_ "github.com/brave-intl/momo-go/services/momo/cmd"
)

var (
	// variables will be overwritten at build time
	version   string
	commit    string
	buildTime string
)

func main() {
	defer func() {
		if logging.Writer != nil {
			logging.Writer.Close()
		}
	}()
	cmd.Execute(version, commit, buildTime)
}

package transactions

import (
	"github.com/spf13/cobra"

	"github.com/brave-intl/momo-go/cmd"
)

var (
	// TransactionsCmd root transactions command
	TransactionsCmd = &cobra.Command{
		Use:   "transactions",
		Short: "inspects mobile money transactions of a running service",
	}
)

func init() {
	cmd.RootCmd.AddCommand(TransactionsCmd)
}

package transactions

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/brave-intl/momo-go/cmd"
	"github.com/brave-intl/momo-go/libs/clients"
	"github.com/brave-intl/momo-go/services/momo"
	"github.com/brave-intl/momo-go/services/momo/model"
)

var (
	// ListCmd lists the transactions a service has recorded
	ListCmd = &cobra.Command{
		Use:   "list",
		Short: "lists recorded transactions, newest first",
		Run:   cmd.Perform("list transactions", RunList),
	}
)

// csvRow is one transaction in the csv output
type csvRow struct {
	TransactionID string `csv:"transaction_id"`
	ReferenceID   string `csv:"reference_id"`
	OrderID       string `csv:"order_id"`
	Amount        string `csv:"amount"`
	Currency      string `csv:"currency"`
	Status        string `csv:"status"`
	FailureReason string `csv:"failure_reason"`
	CreatedAt     string `csv:"created_at"`
	UpdatedAt     string `csv:"updated_at"`
}

func init() {
	TransactionsCmd.AddCommand(ListCmd)

	b := cmd.NewFlagBuilder(ListCmd)

	b.Flag().String("server", "http://localhost:8080",
		"the base url of the momo service").
		Env("MOMO_SERVICE_URL").
		Bind("server")

	b.Flag().String("state", "",
		"only list transactions in this state").
		Bind("state")

	b.Flag().String("order-id", "",
		"only list transactions of this order").
		Bind("order-id")

	b.Flag().Int("limit", model.DefaultListLimit,
		"limit number of transactions returned").
		Bind("limit")

	b.Flag().Bool("csv", false,
		"write csv instead of json").
		Bind("csv")
}

// RunList runs the list command
func RunList(command *cobra.Command, args []string) error {
	filter := model.ListFilter{
		State:   model.State(viper.GetString("state")),
		OrderID: viper.GetString("order-id"),
		Limit:   viper.GetInt("limit"),
	}
	return List(
		command.Context(),
		os.Stdout,
		viper.GetString("server"),
		filter,
		viper.GetBool("csv"),
	)
}

// List fetches the transactions matching filter from server and writes them to w
func List(ctx context.Context, w io.Writer, server string, filter model.ListFilter, csvOut bool) error {
	client, err := clients.NewWithHTTPClient(server, "", &http.Client{Timeout: 30 * time.Second})
	if err != nil {
		return err
	}

	req, err := client.NewRequest(ctx, http.MethodGet, "/api/transactions", nil, filter)
	if err != nil {
		return err
	}

	var resp momo.ListResponse
	if _, err := client.Do(ctx, req, &resp); err != nil {
		return err
	}

	if !csvOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp.Transactions)
	}

	rows := make([]csvRow, 0, len(resp.Transactions))
	for _, tx := range resp.Transactions {
		rows = append(rows, csvRow{
			TransactionID: tx.ID.String(),
			ReferenceID:   tx.ProviderReference.String(),
			OrderID:       tx.OrderID,
			Amount:        tx.Amount.String(),
			Currency:      tx.Currency,
			Status:        string(tx.State),
			FailureReason: tx.FailureReason,
			CreatedAt:     tx.CreatedAt.Format(time.RFC3339),
			UpdatedAt:     tx.UpdatedAt.Format(time.RFC3339),
		})
	}
	return gocsv.Marshal(&rows, w)
}

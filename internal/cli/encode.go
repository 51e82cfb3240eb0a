package cli

import (
	"fmt"

	"github.com/apifetch/pkg/fetch"
	"github.com/spf13/cobra"
)

var encodeParams []string

var encodeCmd = &cobra.Command{
	Use:   "encode [URL]",
	Short: "Print the URL-encoded query string for a set of params",
	Long: `Print the query string built from the given params, in order.
With a URL argument the full request target is printed instead.

Examples:
  apifetch encode -p ids=BTC -p convert=USD
  apifetch encode https://api.exchangeratesapi.io/latest -p base=USD`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEncode,
}

func init() {
	encodeCmd.Flags().StringArrayVarP(&encodeParams, "param", "p", nil, "Query parameter as name=value (repeatable)")
	rootCmd.AddCommand(encodeCmd)
}

func runEncode(cmd *cobra.Command, args []string) error {
	params, err := parseParams(encodeParams)
	if err != nil {
		return err
	}

	if len(args) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), params.Encode())
		return nil
	}

	req := &fetch.Request{URL: args[0], Params: params}
	target, err := req.Target()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), target)
	return nil
}

package cli

import (
	"time"

	"github.com/apifetch/internal/config"
	"github.com/apifetch/internal/logging"
	"github.com/apifetch/internal/report"
	"github.com/apifetch/internal/selector"
	"github.com/apifetch/pkg/fetch"
	"github.com/spf13/cobra"
)

var (
	getParams    []string
	getJSON      bool
	getSelect    string
	getHeaders   bool
	getHTTP2     bool
	getTimeout   time.Duration
	getInsecure  bool
	getUserAgent string
)

var getCmd = &cobra.Command{
	Use:   "get URL",
	Short: "Fetch a single URL",
	Long: `Issue one GET request and print the status code and body.
Any status other than 200 is reported and exits with status 1.

Examples:
  apifetch get http://www.google.com --headers
  apifetch get https://api.exchangeratesapi.io/latest -p base=USD -p symbols=BRL --json
  apifetch get https://api.example.com/ticker --select 'payload[0]'`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

func init() {
	getCmd.Flags().StringArrayVarP(&getParams, "param", "p", nil, "Query parameter as name=value (repeatable)")
	getCmd.Flags().BoolVarP(&getJSON, "json", "j", false, "Decode the body as JSON")
	getCmd.Flags().StringVarP(&getSelect, "select", "s", "", "Expression evaluated against the payload (implies --json)")
	getCmd.Flags().BoolVarP(&getHeaders, "headers", "i", false, "Print response headers")
	getCmd.Flags().BoolVar(&getHTTP2, "http2", false, "Use HTTP/2")
	getCmd.Flags().DurationVar(&getTimeout, "timeout", 0, "Request timeout (0 = none)")
	getCmd.Flags().BoolVarP(&getInsecure, "insecure", "k", false, "Skip TLS certificate verification")
	getCmd.Flags().StringVar(&getUserAgent, "user-agent", "apifetch", "User-Agent header")
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	params, err := parseParams(getParams)
	if err != nil {
		return err
	}

	var sel *selector.Selector
	if getSelect != "" {
		if sel, err = selector.Compile(getSelect); err != nil {
			return err
		}
		getJSON = true
	}

	clientCfg := config.Client{
		Protocol:    config.ProtocolHTTP,
		Timeout:     getTimeout,
		UserAgent:   getUserAgent,
		TLSInsecure: getInsecure,
	}
	if getHTTP2 {
		clientCfg.Protocol = config.ProtocolHTTP2
	}
	client := clientCfg.NewClient()
	defer client.Close()

	req := &fetch.Request{
		URL:        args[0],
		Params:     params,
		DecodeJSON: getJSON,
	}

	out := cmd.OutOrStdout()
	printer := report.NewPrinter(out, report.Options{
		Headers: getHeaders,
		Styled:  isTerminal(out),
	})

	log := logging.For("get").WithField("url", req.URL)
	resp, err := client.Fetch(cmd.Context(), req)
	if err != nil {
		log.WithError(err).Debug("fetch failed")
		printer.Failure(err)
		return errFetchFailed
	}
	log.WithField("duration", resp.Duration).Debug("fetched")

	if sel == nil {
		return printer.Response(resp)
	}

	selected, err := sel.Eval(resp.Payload)
	if err != nil {
		return err
	}
	return printer.Response(resp, selected)
}

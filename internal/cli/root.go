package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/apifetch/internal/logging"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"

	logLevel  string
	logFormat string
)

// errFetchFailed is returned after a failure has already been reported.
var errFetchFailed = errors.New("there was an error")

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "apifetch",
	Short: "Fetch public HTTP APIs and report the result",
	Long: `apifetch issues single HTTP GET requests against public APIs and
prints the status code, headers and payload.

Get started:
  apifetch get URL       Fetch one URL
  apifetch encode        Build a query string
  apifetch run           Fetch the endpoints in a config file`,
	Version:       fmt.Sprintf("%s (built %s)", version, buildTime),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Init(logLevel, logFormat)
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")
}

// SetVersion sets the version info
func SetVersion(v, bt string) {
	version = v
	buildTime = bt
	rootCmd.Version = fmt.Sprintf("%s (built %s, commit %s)", version, buildTime, gitCommit)
}

// SetGitCommit sets the commit the binary was built from
func SetGitCommit(c string) {
	gitCommit = c
	rootCmd.Version = fmt.Sprintf("%s (built %s, commit %s)", version, buildTime, gitCommit)
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

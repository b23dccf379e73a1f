// Command msiparser inspects Windows Installer packages and other compound
// files: metadata, streams, tables and signatures.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/msitools/msiparser/internal/log"
)

const (
	cliName        = "msiparser"
	cliDescription = "inspect Windows Installer packages and compound files"
)

var rootCmd = &cobra.Command{
	Use:           cliName,
	Short:         cliDescription,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if globalFlags.Debug {
			log.SetLogLevel("debug")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.Pretty, "pretty", "p", false, "indent JSON output")
	rootCmd.PersistentFlags().StringVar(&globalFlags.Format, "format", FormatJSON, "output format, json or table")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.Debug, "debug", false, "log decoding details to stderr")

	rootCmd.AddCommand(
		newListMetadataCommand(),
		newListStreamsCommand(),
		newListTablesCommand(),
		newExtractAllCommand(),
		newExtractCommand(),
		newExtractCertificateCommand(),
		newExportTablesCommand(),
	)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		cmdFailed(err)
		os.Exit(1)
	}
}

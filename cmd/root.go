package cmd

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Embedded default configuration. A .tebi-books.yaml in the working
// directory or home directory overrides it; flags override both.
const defaultConfigYAML = `
office: ""
journal_code: TEBI
differences_ledger: "9899"
currency: EUR
tolerance: "0.05"
format: twinfield
destiny: concept
delimiter: ";"
# Source account -> GL code. Filled per administration, e.g.:
#   mappings:
#     "Omzet keuken hoog": "8000"
mappings: {}
`

var (
	cfgFile string
	verbose bool
	rootCmd = &cobra.Command{
		Use:   "tebi-books [filename]",
		Short: "Convert Tebi daily revenue exports into bookkeeping journals",
		Long: `tebi-books converts Tebi point-of-sale revenue exports into balanced
journal files for Twinfield (XML) and Exact (delimited).`,
		Args: cobra.ArbitraryArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) == 1 {
				viper.Set("input", args[0])
				runBuild(buildCmd, []string{})
				return
			}
			cmd.Help()
		},
	}
)

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initLogging)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default is ./.tebi-books.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

func initLogging() {
	if !verbose {
		log.SetOutput(io.Discard)
	} else {
		log.SetFlags(log.Ltime | log.Lmsgprefix)
		log.SetPrefix("INFO: ")
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(".")
		viper.AddConfigPath(home)
		viper.SetConfigName(".tebi-books")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if err := viper.ReadConfig(bytes.NewBufferString(defaultConfigYAML)); err != nil {
				fmt.Printf("Error loading embedded configuration: %v\n", err)
				os.Exit(1)
			}
		} else {
			fmt.Printf("Error reading config file: %v\n", err)
			os.Exit(1)
		}
	}
}

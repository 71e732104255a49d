package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile  string
	verbose  bool
	logLevel string
	logJSON  bool
	workers  int
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "sentimenta",
	Short: "Sentimenta - bag-of-words sentiment scoring for text reviews",
	Long: `Sentimenta trains a logistic-regression sentiment classifier on labelled
reviews, evaluates it on a held-out split, saves the fitted vocabulary and
model, and scores new text with the saved artifact.

A score is the probability, between 0 and 1, that a review is positive.
It is a statistical estimate from word and word-pair counts, not an
understanding of the text.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number and artifact format of Sentimenta.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("sentimenta v0.1.0")
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.sentimenta/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit structured JSON logs")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0, "row-parallel workers (default: number of CPUs)")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		// Search for config in home directory
		viper.AddConfigPath(home + "/.sentimenta")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match SENTIMENTA_*, with nested
	// keys joined by underscores (SENTIMENTA_VECTORIZER_MIN_DF)
	viper.SetEnvPrefix("SENTIMENTA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

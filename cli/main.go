// Command egw-chat is a terminal client for the EGroupware chat service.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfigFileName = ".egw-chat"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "egw-chat",
	Short: "Chat with the EGroupware assistant from the terminal",
	Long: `egw-chat logs in to the EGroupware chat service, keeps the access token in
the system keyring and streams assistant replies, tool calls and tool results.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.egw-chat.yaml)")
	rootCmd.PersistentFlags().StringP("server", "s", "http://localhost:8000", "chat service base URL")
	_ = viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(toolsCmd)
}

// initConfig reads the optional config file and EGWCHAT_* environment
// variables. Flags win over both.
func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(defaultConfigFileName)
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("EGWCHAT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			return fmt.Errorf("failed to read config %s: %w", filepath.Clean(cfgFile), err)
		}
	}
	return nil
}

func serverURL() string {
	return strings.TrimSuffix(viper.GetString("server"), "/")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/domain"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the access token in the system keyring",
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the server session and forget the stored token",
	RunE:  runLogout,
}

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Send one message, or start an interactive chat without arguments",
	RunE:  runChat,
}

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools the assistant can call",
	RunE:  runTools,
}

func init() {
	loginCmd.Flags().String("username", "", "EGroupware username")
	loginCmd.Flags().String("password", "", "EGroupware password")
	loginCmd.Flags().String("egw-url", "", "EGroupware base URL")
	loginCmd.Flags().String("ai-key", "", "LLM API key (sk-ant-, sk-, gh or IONOS token)")
	loginCmd.Flags().String("ionos-base-url", "", "IONOS OpenAI-compatible base URL")
	for _, name := range []string{"username", "password", "egw-url", "ai-key", "ionos-base-url"} {
		_ = viper.BindPFlag(strings.ReplaceAll(name, "-", "_"), loginCmd.Flags().Lookup(name))
	}

	chatCmd.Flags().Bool("ws", false, "use the WebSocket endpoint instead of server-sent events")
	_ = viper.BindPFlag("ws", chatCmd.Flags().Lookup("ws"))
}

func runLogin(cmd *cobra.Command, args []string) error {
	req := domain.LoginRequest{
		Username:     viper.GetString("username"),
		Password:     viper.GetString("password"),
		EGWURL:       viper.GetString("egw_url"),
		AIKey:        viper.GetString("ai_key"),
		IONOSBaseURL: viper.GetString("ionos_base_url"),
	}
	if req.Password == "" {
		fmt.Fprint(cmd.OutOrStdout(), "Password: ")
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to read password: %w", err)
		}
		req.Password = strings.TrimRight(line, "\r\n")
	}
	if req.Username == "" || req.Password == "" || req.EGWURL == "" || req.AIKey == "" {
		return errors.New("username, password, egw-url and ai-key are required (flags, EGWCHAT_* env or config file)")
	}

	client := NewClient(serverURL(), "")
	token, err := client.Login(cmd.Context(), req)
	if err != nil {
		return err
	}
	if err := saveToken(serverURL(), token); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", req.Username)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	token, err := loadToken(serverURL())
	if err != nil {
		return err
	}
	client := NewClient(serverURL(), token)
	if err := client.Logout(cmd.Context()); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "server logout failed: %v\n", err)
	}
	if err := deleteToken(serverURL()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
	return nil
}

func runTools(cmd *cobra.Command, args []string) error {
	client := NewClient(serverURL(), "")
	defs, err := client.Tools(cmd.Context())
	if err != nil {
		return err
	}
	for _, def := range defs {
		fmt.Fprintf(cmd.OutOrStdout(), "%-20s %s\n", def.Function.Name, def.Function.Description)
	}
	return nil
}

func runChat(cmd *cobra.Command, args []string) error {
	token, err := loadToken(serverURL())
	if err != nil {
		return err
	}
	client := NewClient(serverURL(), token)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	out := cmd.OutOrStdout()
	if len(args) > 0 {
		return sendOne(ctx, client, strings.Join(args, " "), out)
	}

	fmt.Fprintln(out, "Type a message and press Enter. /quit to exit.")
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/quit" {
			return nil
		}
		if err := sendOne(ctx, client, input, out); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
		}
	}
}

func sendOne(ctx context.Context, client *Client, message string, out io.Writer) error {
	printer := &eventPrinter{out: out}
	var err error
	if viper.GetBool("ws") {
		err = client.ChatWS(ctx, message, printer.Print)
	} else {
		err = client.ChatSSE(ctx, message, printer.Print)
	}
	fmt.Fprintln(out)
	return err
}

// eventPrinter renders chat events for a terminal.
type eventPrinter struct {
	out io.Writer
}

func (p *eventPrinter) Print(ev domain.ChatEvent) {
	switch ev.Type {
	case domain.ChatEventToken:
		fmt.Fprint(p.out, ev.Content)
	case domain.ChatEventToolCall:
		fmt.Fprintf(p.out, "\n[calling %s]\n", ev.ToolName)
	case domain.ChatEventToolResult:
		fmt.Fprintf(p.out, "[%s] %s\n", ev.ToolName, ev.Result)
	case domain.ChatEventError:
		fmt.Fprintf(p.out, "\n[error] %s\n", ev.Message)
	}
}

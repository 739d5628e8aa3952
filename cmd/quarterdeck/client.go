package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/quarterdeck/schema"
)

// clientFlags are shared by every client subcommand.
type clientFlags struct {
	server    string
	token     string
	tab       int
	timeoutMS int
}

func (f *clientFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.server, "server", "http://127.0.0.1:27590", "quarterdeck server base URL")
	cmd.Flags().StringVar(&f.token, "token", os.Getenv("QUARTERDECK_TOKEN"), "bearer token")
	cmd.Flags().IntVar(&f.tab, "tab", -1, "target tab index (default: active tab)")
	cmd.Flags().IntVar(&f.timeoutMS, "timeout-ms", 0, "per-command timeout override")
}

func (f *clientFlags) command(method schema.Method, args any) (schema.Command, error) {
	cmd := schema.Command{Method: method, TimeoutMS: f.timeoutMS}
	if f.tab >= 0 {
		tab := f.tab
		cmd.Tab = &tab
	}
	if args != nil {
		data, err := json.Marshal(args)
		if err != nil {
			return schema.Command{}, err
		}
		cmd.Args = data
	}
	return cmd, nil
}

// send posts the command envelope and prints the result value. A result
// error becomes the command's exit error.
func (f *clientFlags) send(ctx context.Context, out io.Writer, cmd schema.Command) error {
	body, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.server+"/api/command", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}
	client := &http.Client{Timeout: clientHTTPTimeout(cmd.TimeoutMS)}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("server returned %s: %s", resp.Status, bytes.TrimSpace(data))
	}
	var result schema.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return err
	}
	if err := result.Err(); err != nil {
		return err
	}
	if len(result.Value) > 0 {
		var pretty bytes.Buffer
		if json.Indent(&pretty, result.Value, "", "  ") == nil {
			fmt.Fprintln(out, pretty.String())
		} else {
			fmt.Fprintln(out, string(result.Value))
		}
	} else {
		fmt.Fprintln(out, "ok")
	}
	return nil
}

// clientHTTPTimeout leaves headroom beyond the server-side command
// timeout so the server's classification wins over a client-side abort.
func clientHTTPTimeout(timeoutMS int) time.Duration {
	if timeoutMS <= 0 {
		return 6 * time.Minute
	}
	return time.Duration(timeoutMS)*time.Millisecond + 10*time.Second
}

func newClientCmds() []*cobra.Command {
	return []*cobra.Command{
		newStatusCmd(),
		newTabsCmd(),
		newNewTabCmd(),
		newCloseCmd(),
		newSwitchCmd(),
		newPageCmd(),
		newNavCmd(),
		newClickCmd(),
		newFillCmd(),
		newBackCmd(),
		newForwardCmd(),
		newRefreshCmd(),
		newElementsCmd(),
		newScriptCmd(),
		newExecCmd(),
		newCwdCmd(),
		newChatCmd(),
	}
}

func newStatusCmd() *cobra.Command {
	flags := &clientFlags{}
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report tab count and active tab",
		RunE: func(cmd *cobra.Command, args []string) error {
			envelope, err := flags.command(schema.MethodStatus, nil)
			if err != nil {
				return err
			}
			return flags.send(cmd.Context(), cmd.OutOrStdout(), envelope)
		},
	}
	flags.register(cmd)
	return cmd
}

func newTabsCmd() *cobra.Command {
	flags := &clientFlags{}
	cmd := &cobra.Command{
		Use:   "tabs",
		Short: "List tabs",
		RunE: func(cmd *cobra.Command, args []string) error {
			envelope, err := flags.command(schema.MethodListTabs, nil)
			if err != nil {
				return err
			}
			return flags.send(cmd.Context(), cmd.OutOrStdout(), envelope)
		},
	}
	flags.register(cmd)
	return cmd
}

func newNewTabCmd() *cobra.Command {
	flags := &clientFlags{}
	var url string
	cmd := &cobra.Command{
		Use:   "new <browser|terminal|chat>",
		Short: "Create a tab",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			envelope, err := flags.command(schema.MethodCreateTab, schema.CreateTabArgs{
				Kind: schema.TabKind(args[0]),
				URL:  url,
			})
			if err != nil {
				return err
			}
			return flags.send(cmd.Context(), cmd.OutOrStdout(), envelope)
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "initial URL for a browser tab")
	flags.register(cmd)
	return cmd
}

func newCloseCmd() *cobra.Command {
	flags := &clientFlags{}
	cmd := &cobra.Command{
		Use:   "close <index>",
		Short: "Close the tab at the given position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid index %q", args[0])
			}
			envelope, err := flags.command(schema.MethodCloseTab, schema.TabIndexArgs{Index: index})
			if err != nil {
				return err
			}
			return flags.send(cmd.Context(), cmd.OutOrStdout(), envelope)
		},
	}
	flags.register(cmd)
	return cmd
}

func newSwitchCmd() *cobra.Command {
	flags := &clientFlags{}
	cmd := &cobra.Command{
		Use:   "switch <index>",
		Short: "Activate the tab at the given position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid index %q", args[0])
			}
			envelope, err := flags.command(schema.MethodSwitchTab, schema.TabIndexArgs{Index: index})
			if err != nil {
				return err
			}
			return flags.send(cmd.Context(), cmd.OutOrStdout(), envelope)
		},
	}
	flags.register(cmd)
	return cmd
}

func newPageCmd() *cobra.Command {
	flags := &clientFlags{}
	cmd := &cobra.Command{
		Use:   "page",
		Short: "Report url, title, and load state of a browser tab",
		RunE: func(cmd *cobra.Command, args []string) error {
			envelope, err := flags.command(schema.MethodGetPageInfo, nil)
			if err != nil {
				return err
			}
			return flags.send(cmd.Context(), cmd.OutOrStdout(), envelope)
		},
	}
	flags.register(cmd)
	return cmd
}

func newNavCmd() *cobra.Command {
	flags := &clientFlags{}
	cmd := &cobra.Command{
		Use:   "nav <url>",
		Short: "Navigate a browser tab",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			envelope, err := flags.command(schema.MethodNavigate, schema.NavigateArgs{URL: args[0]})
			if err != nil {
				return err
			}
			return flags.send(cmd.Context(), cmd.OutOrStdout(), envelope)
		},
	}
	flags.register(cmd)
	return cmd
}

func newClickCmd() *cobra.Command {
	flags := &clientFlags{}
	var selector, elementID string
	var at []float64
	cmd := &cobra.Command{
		Use:   "click",
		Short: "Click a page element",
		RunE: func(cmd *cobra.Command, args []string) error {
			clickArgs := schema.ClickArgs{Selector: selector, ElementID: elementID}
			if len(at) == 2 {
				clickArgs.Position = &schema.Position{X: at[0], Y: at[1]}
			} else if len(at) != 0 {
				return fmt.Errorf("--at needs exactly two values, x and y")
			}
			envelope, err := flags.command(schema.MethodClickElement, clickArgs)
			if err != nil {
				return err
			}
			return flags.send(cmd.Context(), cmd.OutOrStdout(), envelope)
		},
	}
	cmd.Flags().StringVar(&selector, "selector", "", "CSS selector")
	cmd.Flags().StringVar(&elementID, "id", "", "element id")
	cmd.Flags().Float64SliceVar(&at, "at", nil, "viewport position, x,y")
	flags.register(cmd)
	return cmd
}

func newFillCmd() *cobra.Command {
	flags := &clientFlags{}
	var selector, elementID string
	cmd := &cobra.Command{
		Use:   "fill <text>",
		Short: "Fill a text input",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			envelope, err := flags.command(schema.MethodFillInput, schema.FillArgs{
				Text:      args[0],
				Selector:  selector,
				ElementID: elementID,
			})
			if err != nil {
				return err
			}
			return flags.send(cmd.Context(), cmd.OutOrStdout(), envelope)
		},
	}
	cmd.Flags().StringVar(&selector, "selector", "", "CSS selector")
	cmd.Flags().StringVar(&elementID, "id", "", "element id")
	flags.register(cmd)
	return cmd
}

func newBackCmd() *cobra.Command {
	flags := &clientFlags{}
	cmd := &cobra.Command{
		Use:   "back",
		Short: "Navigate back in history",
		RunE: func(cmd *cobra.Command, args []string) error {
			envelope, err := flags.command(schema.MethodGoBack, nil)
			if err != nil {
				return err
			}
			return flags.send(cmd.Context(), cmd.OutOrStdout(), envelope)
		},
	}
	flags.register(cmd)
	return cmd
}

func newForwardCmd() *cobra.Command {
	flags := &clientFlags{}
	cmd := &cobra.Command{
		Use:   "forward",
		Short: "Navigate forward in history",
		RunE: func(cmd *cobra.Command, args []string) error {
			envelope, err := flags.command(schema.MethodGoForward, nil)
			if err != nil {
				return err
			}
			return flags.send(cmd.Context(), cmd.OutOrStdout(), envelope)
		},
	}
	flags.register(cmd)
	return cmd
}

func newRefreshCmd() *cobra.Command {
	flags := &clientFlags{}
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Reload the current page",
		RunE: func(cmd *cobra.Command, args []string) error {
			envelope, err := flags.command(schema.MethodRefresh, nil)
			if err != nil {
				return err
			}
			return flags.send(cmd.Context(), cmd.OutOrStdout(), envelope)
		},
	}
	flags.register(cmd)
	return cmd
}

func newElementsCmd() *cobra.Command {
	flags := &clientFlags{}
	cmd := &cobra.Command{
		Use:   "elements",
		Short: "List interactive elements on the page",
		RunE: func(cmd *cobra.Command, args []string) error {
			envelope, err := flags.command(schema.MethodListElements, nil)
			if err != nil {
				return err
			}
			return flags.send(cmd.Context(), cmd.OutOrStdout(), envelope)
		},
	}
	flags.register(cmd)
	return cmd
}

func newScriptCmd() *cobra.Command {
	flags := &clientFlags{}
	cmd := &cobra.Command{
		Use:   "script <javascript>",
		Short: "Evaluate JavaScript in a browser tab",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			envelope, err := flags.command(schema.MethodExecuteScript, schema.ExecuteScriptArgs{Script: args[0]})
			if err != nil {
				return err
			}
			return flags.send(cmd.Context(), cmd.OutOrStdout(), envelope)
		},
	}
	flags.register(cmd)
	return cmd
}

func newExecCmd() *cobra.Command {
	flags := &clientFlags{}
	cmd := &cobra.Command{
		Use:   "exec <command>",
		Short: "Run a shell command in a terminal tab",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			envelope, err := flags.command(schema.MethodExecuteTerminalCommand, schema.ExecuteCommandArgs{
				Command: joinArgs(args),
			})
			if err != nil {
				return err
			}
			return flags.send(cmd.Context(), cmd.OutOrStdout(), envelope)
		},
	}
	flags.register(cmd)
	return cmd
}

func newCwdCmd() *cobra.Command {
	flags := &clientFlags{}
	cmd := &cobra.Command{
		Use:   "cwd",
		Short: "Report a terminal tab's working directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			envelope, err := flags.command(schema.MethodGetCurrentDirectory, nil)
			if err != nil {
				return err
			}
			return flags.send(cmd.Context(), cmd.OutOrStdout(), envelope)
		},
	}
	flags.register(cmd)
	return cmd
}

func newChatCmd() *cobra.Command {
	flags := &clientFlags{}
	var assistant string
	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Send a message to a chat tab's assistant",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			envelope, err := flags.command(schema.MethodSendChatMessage, schema.SendChatArgs{
				Message:   joinArgs(args),
				Assistant: assistant,
			})
			if err != nil {
				return err
			}
			return flags.send(cmd.Context(), cmd.OutOrStdout(), envelope)
		},
	}
	cmd.Flags().StringVar(&assistant, "assistant", "", "backend name, ordinal, or all")
	flags.register(cmd)
	return cmd
}

func joinArgs(args []string) string {
	out := args[0]
	for _, arg := range args[1:] {
		out += " " + arg
	}
	return out
}

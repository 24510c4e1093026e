// ABOUTME: Admin CLI for crm-gateway lead rotation
// ABOUTME: Assigns leads, runs batch imports, and inspects or resets the rotation over HTTP

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const banner = `
                                   _           _
  ___ _ __ _ __ ___          __ _| |_ __ ___ (_)_ __
 / __| '__| '_ ' _ \ _____  / _' | | '_ ' _ \| | '_ \
| (__| |  | | | | | |_____|| (_| | | | | | | | | | | |
 \___|_|  |_| |_| |_|       \__,_|_|_| |_| |_|_|_| |_|
`

const defaultGatewayURL = "http://localhost:8080"

// getToken returns CRM_TOKEN, falling back to the token file next to the gateway config.
func getToken() string {
	if token := os.Getenv("CRM_TOKEN"); token != "" {
		return token
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	data, err := os.ReadFile(filepath.Join(configDir, "brokerage-crm", "token"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func getGatewayURL() string {
	if u := os.Getenv("CRM_GATEWAY_URL"); u != "" {
		return u
	}
	return defaultGatewayURL
}

// newRootCmd builds the command tree. Each call returns independent commands.
func newRootCmd() *cobra.Command {
	var (
		gatewayURL string
		token      string
	)

	client := func() *Client { return NewClient(gatewayURL, token) }

	root := &cobra.Command{
		Use:   "crm-admin",
		Short: "Manage lead rotation on a crm-gateway",
		Long: banner + `
Assign leads round-robin and inspect the rotation.

Environment:
  CRM_GATEWAY_URL  Gateway base URL (default: http://localhost:8080)
  CRM_TOKEN        Bearer token (crm-gateway token mints one)`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&gatewayURL, "url", getGatewayURL(), "Gateway base URL")
	root.PersistentFlags().StringVar(&token, "token", getToken(), "Bearer token")

	assignCmd := &cobra.Command{
		Use:   "assign <lead-id>",
		Short: "Assign an existing lead to the next agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client().AssignLead(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			green := color.New(color.FgGreen)
			green.Fprint(cmd.OutOrStdout(), "✓ ")
			fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
			return nil
		},
	}

	assignBatchCmd := &cobra.Command{
		Use:   "assign-batch <log-id>...",
		Short: "Create leads from communication logs and assign them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client().AssignBatch(cmd.Context(), args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			green := color.New(color.FgGreen)
			green.Fprint(out, "✓ ")
			fmt.Fprintln(out, resp.Message)
			if len(resp.Leads) == 0 {
				return nil
			}

			fmt.Fprintln(out)
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "  ID\tNAME\tAGENT")
			fmt.Fprintln(w, "  --\t----\t-----")
			for _, l := range resp.Leads {
				fmt.Fprintf(w, "  %s\t%s\t%s\n", truncate(l.ID, 12), truncate(l.Name, 32), l.Agent)
			}
			return w.Flush()
		},
	}

	rotationCmd := &cobra.Command{
		Use:   "rotation",
		Short: "Show the rotation roster, cursor, and next agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := client().RotationStatus(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			cyan := color.New(color.FgCyan)
			gray := color.New(color.FgHiBlack)

			fmt.Fprintf(out, "Mode:   %s\n", st.Mode)
			fmt.Fprintf(out, "Cursor: %d\n", st.Cursor)
			fmt.Fprint(out, "Next:   ")
			if st.Next != nil {
				cyan.Fprintln(out, st.Next.Name)
			} else {
				color.New(color.FgYellow).Fprintln(out, "(no eligible agents)")
			}
			fmt.Fprintln(out)

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "  #\tID\tNAME")
			fmt.Fprintln(w, "  -\t--\t----")
			for i, a := range st.Roster {
				marker := ""
				if st.Next != nil && a.ID == st.Next.ID {
					marker = gray.Sprint(" <- next")
				}
				fmt.Fprintf(w, "  %d\t%s\t%s%s\n", i, truncate(a.ID, 12), a.Name, marker)
			}
			return w.Flush()
		},
	}

	rotationResetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset the rotation cursor so the first agent is next",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client().ResetRotation(cmd.Context()); err != nil {
				return err
			}
			color.New(color.FgGreen).Fprint(cmd.OutOrStdout(), "✓ ")
			fmt.Fprintln(cmd.OutOrStdout(), "Rotation reset")
			return nil
		},
	}
	rotationCmd.AddCommand(rotationResetCmd)

	teamCmd := &cobra.Command{
		Use:   "team",
		Short: "Team member commands",
	}

	teamListCmd := &cobra.Command{
		Use:   "list",
		Short: "List team members and their rotation status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			members, err := client().ListTeamMembers(cmd.Context())
			if err != nil {
				return err
			}
			if len(members) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No team members.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "  ID\tNAME\tSTATUS\tROTATION")
			fmt.Fprintln(w, "  --\t----\t------\t--------")
			for _, m := range members {
				rotation := "no"
				if m.InLeadRotation {
					rotation = "yes"
				}
				fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", truncate(m.ID, 12), m.Name, m.Status, rotation)
			}
			return w.Flush()
		},
	}
	teamCmd.AddCommand(teamListCmd)

	root.AddCommand(assignCmd, assignBatchCmd, rotationCmd, teamCmd)
	return root
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

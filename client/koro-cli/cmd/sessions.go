package cmd

import (
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage chat sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		var list sessionList
		if err := callAPI(cmd.Context(), http.MethodGet, "/sessions", nil, &list); err != nil {
			return err
		}
		printSessions(list)
		return nil
	},
}

var sessionsNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Start a new session and make it current",
	RunE: func(cmd *cobra.Command, args []string) error {
		var s chatSession
		if err := callAPI(cmd.Context(), http.MethodPost, "/sessions", nil, &s); err != nil {
			return err
		}
		fmt.Printf("Created session %s\n", s.ID)
		return nil
	},
}

var sessionsSelectCmd = &cobra.Command{
	Use:   "select [session-id]",
	Short: "Make a session current",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var s chatSession
		if err := callAPI(cmd.Context(), http.MethodPost, "/sessions/"+args[0]+"/select", nil, &s); err != nil {
			return err
		}
		fmt.Printf("Current session: %s\n", s.Title)
		return nil
	},
}

var sessionsRenameCmd = &cobra.Command{
	Use:   "rename [session-id] [title]",
	Short: "Rename a session",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callAPI(cmd.Context(), http.MethodPatch, "/sessions/"+args[0], map[string]string{"title": args[1]}, nil)
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete [session-id]",
	Short: "Delete a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var list sessionList
		if err := callAPI(cmd.Context(), http.MethodDelete, "/sessions/"+args[0], nil, &list); err != nil {
			return err
		}
		printSessions(list)
		return nil
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the turns of the current session",
	RunE: func(cmd *cobra.Command, args []string) error {
		var list sessionList
		if err := callAPI(cmd.Context(), http.MethodGet, "/sessions", nil, &list); err != nil {
			return err
		}
		for _, s := range list.Sessions {
			if s.ID != list.CurrentSessionID {
				continue
			}
			fmt.Printf("# %s\n\n", s.Title)
			for _, t := range s.Turns {
				fmt.Printf("[%s] %s\n\n", t.Role, t.Content)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd, sessionsNewCmd, sessionsSelectCmd, sessionsRenameCmd, sessionsDeleteCmd, sessionsShowCmd)
}

func printSessions(list sessionList) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "\tID\tTITLE\tTURNS\tCREATED")
	for _, s := range list.Sessions {
		marker := ""
		if s.ID == list.CurrentSessionID {
			marker = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", marker, s.ID, s.Title, len(s.Turns), s.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	w.Flush()
}

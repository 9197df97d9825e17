package cmd

import (
	"context"
	"fmt"
	"net/http"

	koroHTTP "Koro/backend/go/pkg/http"

	"github.com/spf13/cobra"
)

var (
	loginEmail    string
	loginPassword string
	loginName     string
	loginLocal    bool
	loginSignup   bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and save the access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		return login(cmd.Context())
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the saved token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := callAPI(cmd.Context(), http.MethodPost, "/auth/logout", nil, nil); err != nil {
			return err
		}
		path, err := tokenPath()
		if err != nil {
			return err
		}
		return removeIfExists(path)
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "account password")
	loginCmd.Flags().StringVar(&loginName, "name", "", "display name (signup and local only)")
	loginCmd.Flags().BoolVar(&loginLocal, "local", false, "use the offline local identity")
	loginCmd.Flags().BoolVar(&loginSignup, "signup", false, "register a new account")
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}

func login(ctx context.Context) error {
	client, err := koroHTTP.NewDefaultClient()
	if err != nil {
		return err
	}

	var (
		path    string
		payload map[string]string
	)
	switch {
	case loginLocal:
		path = "/auth/local"
		payload = map[string]string{"name": loginName, "email": loginEmail}
	case loginSignup:
		path = "/auth/signup"
		payload = map[string]string{"name": loginName, "email": loginEmail, "password": loginPassword}
	default:
		if loginEmail == "" || loginPassword == "" {
			return fmt.Errorf("--email and --password are required (or use --local)")
		}
		path = "/auth/login"
		payload = map[string]string{"email": loginEmail, "password": loginPassword}
	}

	var resp authResponse
	if err := client.DoJSON(ctx, http.MethodPost, endpoint(path), "", payload, &resp); err != nil {
		return err
	}
	if err := saveToken(resp.Token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	fmt.Printf("Signed in as %s (%s)\n", resp.User.Name, resp.User.Provider)
	return nil
}

package commands

import (
	"fmt"
	"strings"

	"github.com/penwyp/go-fullsnack/internal/application/shell"
	"github.com/penwyp/go-fullsnack/internal/core/model"
	"github.com/penwyp/go-fullsnack/internal/data/api"
	"github.com/spf13/cobra"
)

var (
	signupFirstName string
	signupLastName  string
)

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Sign in and remember the session token",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogin,
}

var signupCmd = &cobra.Command{
	Use:   "signup <email>",
	Short: "Create an account and sign in",
	Args:  cobra.ExactArgs(1),
	RunE:  runSignup,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Revoke the session token and forget it",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the store and the signed in account",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(loginCmd, signupCmd, logoutCmd, statusCmd)

	signupCmd.Flags().StringVar(&signupFirstName, "first-name", "", "First name")
	signupCmd.Flags().StringVar(&signupLastName, "last-name", "", "Last name")
}

func readPassword(cmd *cobra.Command) (string, error) {
	password, err := shell.ReadPassword(cmd.InOrStdin(), cmd.OutOrStdout(), "Password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if strings.TrimSpace(password) == "" {
		return "", fmt.Errorf("password is required")
	}
	return password, nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	password, err := readPassword(cmd)
	if err != nil {
		return err
	}
	user, err := a.Login(cmd.Context(), args[0], password)
	if err != nil {
		return fmt.Errorf("login failed: %s", api.UserMessage(err))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", user.Email)
	return nil
}

func runSignup(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	password, err := readPassword(cmd)
	if err != nil {
		return err
	}
	user, err := a.Signup(cmd.Context(), model.Credentials{
		Email:     args[0],
		Password:  password,
		FirstName: signupFirstName,
		LastName:  signupLastName,
	})
	if err != nil {
		return fmt.Errorf("signup failed: %s", api.UserMessage(err))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s\n", user.DisplayName())
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.Gate().IsAuthenticated() {
		fmt.Fprintln(cmd.OutOrStdout(), "Not signed in")
		return nil
	}
	if err := a.Logout(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Store:    %s\n", a.Client().BaseURL())
	fmt.Fprintf(out, "Today:    %s (%s)\n", a.Today(), a.TimeProvider().Location())
	if !a.Gate().IsAuthenticated() {
		fmt.Fprintln(out, "Account:  not signed in")
		return nil
	}

	user, err := a.Client().Me(cmd.Context())
	if err != nil {
		return fmt.Errorf("session check failed: %s", api.UserMessage(err))
	}
	name := user.Email
	if full := strings.TrimSpace(user.FirstName + " " + user.LastName); full != "" {
		name = fmt.Sprintf("%s <%s>", full, user.Email)
	}
	fmt.Fprintf(out, "Account:  %s\n", name)
	return nil
}

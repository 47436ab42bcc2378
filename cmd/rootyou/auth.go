package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rootyou/rootyou/internal/session"
)

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Log in and store the session token",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the stored session token",
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the identity decoded from the stored token",
	RunE:  runWhoami,
}

var registerCmd = &cobra.Command{
	Use:   "register <email> <pseudo>",
	Short: "Create a participant account",
	Args:  cobra.ExactArgs(2),
	RunE:  runRegister,
}

func init() {
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd, registerCmd)
}

// readPassword reads the password from stdin. Piped input works for
// scripting; interactive use gets a prompt.
func readPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Mot de passe: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("empty password")
	}
	return password, nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	email := args[0]

	password, err := readPassword()
	if err != nil {
		return err
	}

	token, err := a.client.Login(cmd.Context(), email, password)
	if err != nil {
		a.metrics.IncAuthFailure("login")
		return err
	}

	// Decode before storing: a token we cannot read is useless.
	sess, err := a.decoder.Decode(token)
	if err != nil {
		a.metrics.IncAuthFailure("undecodable")
		return fmt.Errorf("server returned an unusable token: %w", err)
	}

	if err := a.store.Save(token); err != nil {
		return err
	}
	a.metrics.IncAuthSuccess("login")
	a.metrics.SetSessionValid(true)

	fmt.Printf("Connecté en tant que %s (%s)\n", sess.Pseudo, sess.Role)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if err := a.store.Clear(); err != nil {
		return err
	}
	fmt.Println("Déconnecté.")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	sess, err := a.currentSession()
	if err != nil {
		return err
	}
	if sess == nil {
		fmt.Println("Non connecté.")
		return nil
	}

	fmt.Printf("Email:  %s\n", sess.Email)
	fmt.Printf("Pseudo: %s\n", sess.Pseudo)
	fmt.Printf("Rôle:   %s\n", sess.Role)
	if sess.ExpiresAt != nil {
		fmt.Printf("Expire: %s\n", sess.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	email, pseudo := args[0], args[1]

	password, err := readPassword()
	if err != nil {
		return err
	}

	if err := a.client.RegisterParticipant(cmd.Context(), email, pseudo, password); err != nil {
		return err
	}

	// Registration logs the fresh account straight in.
	token, err := a.client.Login(cmd.Context(), email, password)
	if err != nil {
		return fmt.Errorf("account created but login failed: %w", err)
	}
	if _, err := a.decoder.Decode(token); err != nil {
		return fmt.Errorf("server returned an unusable token: %w", err)
	}
	if err := a.store.Save(token); err != nil {
		return err
	}
	a.metrics.IncAuthSuccess("register")

	fmt.Printf("Compte créé. Bienvenue, %s !\n", pseudo)
	return nil
}

// sessionGuard returns a guard function for pollers: keep fetching only
// while the stored credential still decodes to a valid session.
func (a *app) sessionGuard() func() bool {
	return func() bool {
		sess, err := a.currentSession()
		return err == nil && sess != nil && sess.Role != session.Role("")
	}
}

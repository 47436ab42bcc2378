package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rootyou/rootyou/internal/access"
	"github.com/rootyou/rootyou/internal/api"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Account administration",
}

var usersKindFlag string

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts by kind (administrator)",
	RunE:  runUsersList,
}

var usersBanReason string

var usersBanCmd = &cobra.Command{
	Use:   "ban <email>",
	Short: "Ban an account (administrator)",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsersBan,
}

func init() {
	usersListCmd.Flags().StringVar(&usersKindFlag, "kind", "participants", "account kind: participants, organisateurs or admin")
	usersBanCmd.Flags().StringVar(&usersBanReason, "reason", "", "ban reason shown to the user")

	usersCmd.AddCommand(usersListCmd, usersBanCmd)
	rootCmd.AddCommand(usersCmd)
}

func runUsersList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if _, err := a.requireCapability(access.CapListUsers); err != nil {
		return err
	}

	kind := api.UserKind(usersKindFlag)
	switch kind {
	case api.KindParticipants, api.KindOrganisateurs, api.KindAdmins:
	default:
		return fmt.Errorf("unknown kind %q", usersKindFlag)
	}

	users, err := a.client.ListUsers(cmd.Context(), kind)
	if err != nil {
		return a.handleUnauthorized(err)
	}
	if len(users) == 0 {
		fmt.Println("Aucun compte.")
		return nil
	}
	for _, u := range users {
		status := ""
		if u.Banned {
			status = "  [banni]"
		}
		fmt.Printf("%-20s %-30s%s\n", u.Pseudo, u.Email, status)
	}
	return nil
}

func runUsersBan(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if _, err := a.requireCapability(access.CapBanUser); err != nil {
		return err
	}

	if err := a.client.BanUser(cmd.Context(), args[0], usersBanReason); err != nil {
		return a.handleUnauthorized(err)
	}
	fmt.Printf("%s a été banni.\n", args[0])
	return nil
}

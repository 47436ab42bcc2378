package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/rootyou/rootyou/internal/api"
)

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Participant ranking by score",
}

var leaderboardTop int

var leaderboardShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current ranking",
	RunE:  runLeaderboardShow,
}

var leaderboardWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Refresh and print the ranking periodically",
	RunE:  runLeaderboardWatch,
}

func init() {
	leaderboardCmd.PersistentFlags().IntVar(&leaderboardTop, "top", 20, "number of entries to show")
	leaderboardCmd.AddCommand(leaderboardShowCmd, leaderboardWatchCmd)
	rootCmd.AddCommand(leaderboardCmd)
}

// ranking returns participants sorted by descending score, banned accounts
// excluded.
func ranking(users []api.User) []api.User {
	out := make([]api.User, 0, len(users))
	for _, u := range users {
		if !u.Banned {
			out = append(out, u)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func printRanking(users []api.User, top int) {
	if len(users) == 0 {
		fmt.Println("Aucun participant.")
		return
	}
	for i, u := range users {
		if i >= top {
			break
		}
		fmt.Printf("%3d. %-20s %6d pts\n", i+1, u.Pseudo, u.Score)
	}
}

func runLeaderboardShow(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if _, err := a.requireSession(); err != nil {
		return err
	}

	users, err := a.client.ListUsers(cmd.Context(), api.KindParticipants)
	if err != nil {
		return a.handleUnauthorized(err)
	}
	printRanking(ranking(users), leaderboardTop)
	return nil
}

func runLeaderboardWatch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if _, err := a.requireSession(); err != nil {
		return err
	}

	fetch := func(ctx context.Context) error {
		users, err := a.client.ListUsers(ctx, api.KindParticipants)
		if err != nil {
			return err
		}
		fmt.Println("--- Classement ---")
		printRanking(ranking(users), leaderboardTop)
		return nil
	}

	fmt.Printf("Rafraîchissement du classement toutes les %s (Ctrl-C pour arrêter)\n", a.cfg.Polling.LeaderboardInterval)
	return a.watch(cmd.Context(), "leaderboard", a.cfg.Polling.LeaderboardInterval, fetch)
}

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rootyou/rootyou/internal/access"
	"github.com/rootyou/rootyou/internal/api"
	"github.com/rootyou/rootyou/internal/team"
)

var teamCmd = &cobra.Command{
	Use:   "team",
	Short: "Browse and manage teams",
}

var teamListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all teams",
	RunE:  runTeamList,
}

var teamShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a team and its members",
	Args:  cobra.ExactArgs(1),
	RunE:  runTeamShow,
}

var teamCreateCmd = &cobra.Command{
	Use:   "create <nom>",
	Short: "Create a team, with you as chief",
	Args:  cobra.ExactArgs(1),
	RunE:  runTeamCreate,
}

var teamRequestCmd = &cobra.Command{
	Use:   "request <id>",
	Short: "Ask to join a team",
	Args:  cobra.ExactArgs(1),
	RunE:  runTeamRequest,
}

var teamRequestsCmd = &cobra.Command{
	Use:   "requests <id>",
	Short: "List the pending join requests of your team (chief)",
	Args:  cobra.ExactArgs(1),
	RunE:  runTeamRequests,
}

var teamRespondCmd = &cobra.Command{
	Use:   "respond <candidature-id> <accept|reject>",
	Short: "Accept or reject a join request (chief)",
	Args:  cobra.ExactArgs(2),
	RunE:  runTeamRespond,
}

var teamLeaveCmd = &cobra.Command{
	Use:   "leave <id>",
	Short: "Leave your team",
	Args:  cobra.ExactArgs(1),
	RunE:  runTeamLeave,
}

var teamKickCmd = &cobra.Command{
	Use:   "kick <id> <email>",
	Short: "Expel a member from your team (chief)",
	Args:  cobra.ExactArgs(2),
	RunE:  runTeamKick,
}

var teamChiefCmd = &cobra.Command{
	Use:   "chief <id> <email>",
	Short: "Transfer team leadership to another member (chief)",
	Args:  cobra.ExactArgs(2),
	RunE:  runTeamChief,
}

func init() {
	teamCmd.AddCommand(teamListCmd, teamShowCmd, teamCreateCmd, teamRequestCmd,
		teamRequestsCmd, teamRespondCmd, teamLeaveCmd, teamKickCmd, teamChiefCmd)
	rootCmd.AddCommand(teamCmd)
}

func runTeamList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if _, err := a.requireSession(); err != nil {
		return err
	}

	teams, err := a.client.AllTeams(cmd.Context())
	if err != nil {
		return a.handleUnauthorized(err)
	}
	if len(teams) == 0 {
		fmt.Println("Aucune équipe.")
		return nil
	}
	for _, t := range teams {
		fmt.Printf("%4d  %-30s  chef: %s\n", t.ID, t.Nom, t.ChefEquipePseudo)
	}
	return nil
}

func runTeamShow(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	sess, err := a.requireSession()
	if err != nil {
		return err
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	details, err := a.client.GetTeam(cmd.Context(), id)
	if err != nil {
		return a.handleUnauthorized(err)
	}

	fmt.Printf("Équipe %s\n", details.Nom)
	for _, m := range details.Participants {
		marker := " "
		if m.Email == details.ChefEquipeEmail {
			marker = "*"
		}
		fmt.Printf("  %s %-20s %s\n", marker, m.Pseudo, m.Email)
	}
	if role := team.RoleIn(details, sess.Email); role != team.NotMember {
		fmt.Printf("Vous êtes %s de cette équipe.\n", role)
	}
	return nil
}

// currentTeam fetches every roster and reports the team already listing the
// user, if any. The backend allows one team per participant, so create and
// request refuse locally instead of issuing a request bound for a 409.
func (a *app) currentTeam(ctx context.Context, email string) (*api.TeamDetails, error) {
	summaries, err := a.client.AllTeams(ctx)
	if err != nil {
		return nil, err
	}
	teams := make([]*api.TeamDetails, 0, len(summaries))
	for _, s := range summaries {
		details, err := a.client.GetTeam(ctx, s.ID)
		if err != nil {
			return nil, err
		}
		teams = append(teams, details)
	}
	if t, ok := team.CurrentTeam(teams, email); ok {
		return t, nil
	}
	return nil, nil
}

func runTeamCreate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	sess, err := a.requireCapability(access.CapJoinTeam)
	if err != nil {
		return err
	}

	if current, err := a.currentTeam(cmd.Context(), sess.Email); err != nil {
		return a.handleUnauthorized(err)
	} else if current != nil {
		return fmt.Errorf("vous êtes déjà membre de l'équipe %s", current.Nom)
	}

	if err := a.client.CreateTeam(cmd.Context(), args[0]); err != nil {
		return a.handleUnauthorized(err)
	}
	fmt.Printf("Équipe %q créée. Vous en êtes le chef.\n", args[0])
	return nil
}

func runTeamRequest(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	sess, err := a.requireCapability(access.CapJoinTeam)
	if err != nil {
		return err
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	if current, err := a.currentTeam(cmd.Context(), sess.Email); err != nil {
		return a.handleUnauthorized(err)
	} else if current != nil {
		return fmt.Errorf("vous êtes déjà membre de l'équipe %s", current.Nom)
	}

	if err := a.client.RequestJoinTeam(cmd.Context(), id); err != nil {
		return a.handleUnauthorized(err)
	}
	fmt.Println("Candidature envoyée. Le chef d'équipe doit l'accepter.")
	return nil
}

func runTeamRequests(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if _, err := a.requireCapability(access.CapManageTeam); err != nil {
		return err
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	cands, err := a.client.PendingCandidatures(cmd.Context(), id)
	if err != nil {
		return a.handleUnauthorized(err)
	}

	pending := team.PendingOnly(cands)
	if len(pending) == 0 {
		fmt.Println("Aucune candidature en attente.")
		return nil
	}
	for _, c := range pending {
		fmt.Printf("%4d  %-20s %s  (%s)\n", c.CandidatureID, c.Pseudo, c.Email, c.CreatedAt.Local().Format("02/01/2006"))
	}
	return nil
}

func runTeamRespond(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if _, err := a.requireCapability(access.CapManageTeam); err != nil {
		return err
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	var accept bool
	switch args[1] {
	case "accept":
		accept = true
	case "reject":
	default:
		return fmt.Errorf("second argument must be accept or reject, got %q", args[1])
	}

	responder := team.NewResponder(a.client)
	if err := responder.Respond(cmd.Context(), id, accept); err != nil {
		if errors.Is(err, team.ErrAlreadyResolved) {
			return fmt.Errorf("la candidature %d a déjà été traitée", id)
		}
		return a.handleUnauthorized(err)
	}

	if accept {
		fmt.Printf("Candidature %d acceptée.\n", id)
	} else {
		fmt.Printf("Candidature %d refusée.\n", id)
	}
	return nil
}

func runTeamLeave(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if _, err := a.requireCapability(access.CapJoinTeam); err != nil {
		return err
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	if err := a.client.LeaveTeam(cmd.Context(), id); err != nil {
		return a.handleUnauthorized(err)
	}
	fmt.Println("Vous avez quitté l'équipe.")
	return nil
}

func runTeamKick(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if _, err := a.requireCapability(access.CapManageTeam); err != nil {
		return err
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	if err := a.client.KickMember(cmd.Context(), id, args[1]); err != nil {
		return a.handleUnauthorized(err)
	}
	fmt.Printf("%s a été exclu de l'équipe.\n", args[1])
	return nil
}

func runTeamChief(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if _, err := a.requireCapability(access.CapManageTeam); err != nil {
		return err
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	if err := a.client.DesignateNewChief(cmd.Context(), id, args[1]); err != nil {
		return a.handleUnauthorized(err)
	}
	fmt.Printf("%s est le nouveau chef de l'équipe.\n", args[1])
	return nil
}

package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rootyou/rootyou/internal/access"
	"github.com/rootyou/rootyou/internal/api"
	"github.com/rootyou/rootyou/internal/participation"
	"github.com/rootyou/rootyou/internal/session"
)

var ctfCmd = &cobra.Command{
	Use:   "ctf",
	Short: "Browse, join and manage CTF events",
}

var ctfStatusFlag string

var ctfListCmd = &cobra.Command{
	Use:   "list",
	Short: "List CTFs by lifecycle state",
	RunE:  runCtfList,
}

var ctfShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one CTF with its comments and your participation status",
	Args:  cobra.ExactArgs(1),
	RunE:  runCtfShow,
}

var ctfJoinCmd = &cobra.Command{
	Use:   "join <id>",
	Short: "Join a CTF",
	Args:  cobra.ExactArgs(1),
	RunE:  runCtfJoin,
}

var ctfLeaveCmd = &cobra.Command{
	Use:   "leave <id>",
	Short: "Leave a CTF",
	Args:  cobra.ExactArgs(1),
	RunE:  runCtfLeave,
}

var ctfMineFilter string

var ctfMineCmd = &cobra.Command{
	Use:   "mine",
	Short: "List your participations, one line per CTF",
	RunE:  runCtfMine,
}

var (
	ctfCreateDescription string
	ctfCreateLieu        string
)

var ctfCreateCmd = &cobra.Command{
	Use:   "create <titre>",
	Short: "Submit a new CTF for validation (organizer)",
	Args:  cobra.ExactArgs(1),
	RunE:  runCtfCreate,
}

var (
	ctfModifyTitre       string
	ctfModifyDescription string
	ctfModifyLieu        string
)

var ctfModifyCmd = &cobra.Command{
	Use:   "modify <id>",
	Short: "Update a CTF's title, description or location (organizer or administrator)",
	Args:  cobra.ExactArgs(1),
	RunE:  runCtfModify,
}

var ctfValidateCmd = &cobra.Command{
	Use:   "validate <id>",
	Short: "Approve a pending CTF (administrator)",
	Args:  cobra.ExactArgs(1),
	RunE:  runCtfValidate,
}

var ctfDisableCmd = &cobra.Command{
	Use:   "disable <id>",
	Short: "Take a CTF offline (administrator)",
	Args:  cobra.ExactArgs(1),
	RunE:  runCtfDisable,
}

var ctfCommentCmd = &cobra.Command{
	Use:   "comment <id> <texte>",
	Short: "Comment on a CTF",
	Args:  cobra.ExactArgs(2),
	RunE:  runCtfComment,
}

func init() {
	ctfListCmd.Flags().StringVar(&ctfStatusFlag, "status", "actif", "lifecycle state: actif, en_attente or inactif")
	ctfMineCmd.Flags().StringVar(&ctfMineFilter, "filter", "ALL", "participation filter: ALL, ACTIVE or INACTIVE")
	ctfCreateCmd.Flags().StringVar(&ctfCreateDescription, "description", "", "event description")
	ctfCreateCmd.Flags().StringVar(&ctfCreateLieu, "lieu", "", "event location")
	ctfModifyCmd.Flags().StringVar(&ctfModifyTitre, "titre", "", "new title")
	ctfModifyCmd.Flags().StringVar(&ctfModifyDescription, "description", "", "new description")
	ctfModifyCmd.Flags().StringVar(&ctfModifyLieu, "lieu", "", "new location")

	ctfCmd.AddCommand(ctfListCmd, ctfShowCmd, ctfJoinCmd, ctfLeaveCmd, ctfMineCmd,
		ctfCreateCmd, ctfModifyCmd, ctfValidateCmd, ctfDisableCmd, ctfCommentCmd)
	rootCmd.AddCommand(ctfCmd)
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

// ctfActions adapts the API client to the reconciler's backend surface.
type ctfActions struct {
	client *api.Client
}

func (a ctfActions) Join(ctx context.Context, id int64) error {
	return a.client.JoinCTF(ctx, id)
}

func (a ctfActions) Leave(ctx context.Context, id int64) error {
	return a.client.LeaveCTF(ctx, id)
}

// ctfReconciler builds a reconciler primed with the authoritative
// participation list for the logged-in user. The fetch is tagged so a
// response that straggles in after a newer fetch cannot apply.
func (a *app) ctfReconciler(ctx context.Context, sess *session.Session) (*participation.Reconciler, error) {
	r := participation.NewReconciler(sess.Email, ctfActions{a.client})
	tag := r.BeginFetch()
	rows, err := a.client.MyParticipations(ctx, api.FilterAll)
	if err != nil {
		return nil, a.handleUnauthorized(err)
	}
	r.SetAuthoritativeTagged(tag, participation.FromAPI(rows))
	return r, nil
}

func runCtfList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if _, err := a.requireSession(); err != nil {
		return err
	}

	status := api.CTFStatus(ctfStatusFlag)
	switch status {
	case api.CTFActive, api.CTFPending, api.CTFInactive:
	default:
		return fmt.Errorf("unknown status %q", ctfStatusFlag)
	}

	ctfs, err := a.client.ListCTFs(cmd.Context(), status)
	if err != nil {
		return a.handleUnauthorized(err)
	}

	if len(ctfs) == 0 {
		fmt.Println("Aucun CTF.")
		return nil
	}
	for _, c := range ctfs {
		fmt.Printf("%4d  %-30s  %-15s  %s  (%d vues)\n", c.ID, c.Titre, c.Lieu, c.OrganisateurPseudo, c.NbVues)
	}
	return nil
}

func runCtfShow(cmd *cobra.Command, args []string) error {
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

	ctf, err := a.client.GetCTF(cmd.Context(), id)
	if err != nil {
		return a.handleUnauthorized(err)
	}

	fmt.Printf("%s [%s]\n", ctf.Titre, ctf.Statut)
	if ctf.Description != "" {
		fmt.Println(ctf.Description)
	}
	fmt.Printf("Lieu: %s — organisé par %s — %d vues\n", ctf.Lieu, ctf.OrganisateurPseudo, ctf.NbVues)

	// Participation status is only meaningful for participants.
	if sess.Role == session.RoleParticipant {
		r, err := a.ctfReconciler(cmd.Context(), sess)
		if err != nil {
			return err
		}
		fmt.Printf("Votre statut: %s\n", r.Status(id))
	}

	comments, err := a.client.CommentsForCTF(cmd.Context(), id)
	if err != nil {
		return a.handleUnauthorized(err)
	}
	if len(comments) > 0 {
		fmt.Println("\nCommentaires:")
		for _, c := range comments {
			fmt.Printf("  [%s] %s: %s\n", c.Date.Local().Format("02/01 15:04"), c.UserPseudo, c.Contenu)
		}
	}
	return nil
}

func runCtfJoin(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	sess, err := a.requireCapability(access.CapJoinCTF)
	if err != nil {
		return err
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	r, err := a.ctfReconciler(cmd.Context(), sess)
	if err != nil {
		return err
	}
	if err := r.ApplyJoin(cmd.Context(), id); err != nil {
		if api.IsConflict(err) {
			return fmt.Errorf("participation refusée: %w", err)
		}
		return a.handleUnauthorized(err)
	}

	fmt.Printf("Inscrit au CTF %d. Statut: %s\n", id, r.Status(id))
	return nil
}

func runCtfLeave(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	sess, err := a.requireCapability(access.CapJoinCTF)
	if err != nil {
		return err
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	r, err := a.ctfReconciler(cmd.Context(), sess)
	if err != nil {
		return err
	}
	if err := r.ApplyLeave(cmd.Context(), id); err != nil {
		return a.handleUnauthorized(err)
	}

	fmt.Printf("Désinscrit du CTF %d.\n", id)
	return nil
}

func runCtfMine(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if _, err := a.requireSession(session.RoleParticipant); err != nil {
		return err
	}

	filter := api.ParticipationFilter(ctfMineFilter)
	switch filter {
	case api.FilterAll, api.FilterActive, api.FilterInactive:
	default:
		return fmt.Errorf("unknown filter %q", ctfMineFilter)
	}

	rows, err := a.client.MyParticipations(cmd.Context(), filter)
	if err != nil {
		return a.handleUnauthorized(err)
	}

	// Titles are only carried on the raw rows, so index them before
	// deduplication collapses the history.
	titles := make(map[int64]string, len(rows))
	for _, row := range rows {
		titles[row.CtfID] = row.CtfTitre
	}

	records := participation.Deduplicate(participation.FromAPI(rows))
	if len(records) == 0 {
		fmt.Println("Aucune participation.")
		return nil
	}
	for _, rec := range records {
		fmt.Printf("%4d  %-30s  %-9s  depuis %s\n",
			rec.TargetID, titles[rec.TargetID], participation.Classify(rec), rec.JoinedAt.Local().Format("02/01/2006"))
	}
	return nil
}

func runCtfCreate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if _, err := a.requireCapability(access.CapCreateCTF); err != nil {
		return err
	}

	req := api.CTFCreationRequest{
		Titre:       args[0],
		Description: ctfCreateDescription,
		Lieu:        ctfCreateLieu,
	}
	if err := a.client.RequestCTFCreation(cmd.Context(), req); err != nil {
		return a.handleUnauthorized(err)
	}

	fmt.Println("Demande envoyée. Le CTF sera visible après validation par un administrateur.")
	return nil
}

func runCtfModify(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if _, err := a.requireSession(session.RoleOrganisateur, session.RoleAdministrateur); err != nil {
		return err
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	req := api.CTFCreationRequest{
		Titre:       ctfModifyTitre,
		Description: ctfModifyDescription,
		Lieu:        ctfModifyLieu,
	}
	if req.Titre == "" && req.Description == "" && req.Lieu == "" {
		return fmt.Errorf("nothing to modify: pass --titre, --description or --lieu")
	}
	if err := a.client.ModifyCTF(cmd.Context(), id, req); err != nil {
		return a.handleUnauthorized(err)
	}
	fmt.Printf("CTF %d mis à jour.\n", id)
	return nil
}

func runCtfValidate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if _, err := a.requireCapability(access.CapValidateCTF); err != nil {
		return err
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	if err := a.client.ValidateCTF(cmd.Context(), id); err != nil {
		return a.handleUnauthorized(err)
	}
	fmt.Printf("CTF %d validé.\n", id)
	return nil
}

func runCtfDisable(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if _, err := a.requireCapability(access.CapDisableCTF); err != nil {
		return err
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	if err := a.client.DisableCTF(cmd.Context(), id); err != nil {
		return a.handleUnauthorized(err)
	}
	fmt.Printf("CTF %d désactivé.\n", id)
	return nil
}

func runCtfComment(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if _, err := a.requireSession(); err != nil {
		return err
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	if err := a.client.AddComment(cmd.Context(), id, args[1]); err != nil {
		return a.handleUnauthorized(err)
	}
	fmt.Println("Commentaire publié.")
	return nil
}

package access

import "github.com/rootyou/rootyou/internal/session"

// Capability is a named feature a role may exercise. Commands consult the
// table once instead of comparing role strings inline.
type Capability string

const (
	CapJoinCTF     Capability = "join_ctf"
	CapCreateCTF   Capability = "create_ctf"
	CapValidateCTF Capability = "validate_ctf"
	CapDisableCTF  Capability = "disable_ctf"
	CapManageTeam  Capability = "manage_team"
	CapJoinTeam    Capability = "join_team"
	CapMessage     Capability = "message"
	CapBanUser     Capability = "ban_user"
	CapListUsers   Capability = "list_users"
)

// capabilities maps each role to the features it may use. Unknown roles get
// nothing.
var capabilities = map[session.Role]map[Capability]bool{
	session.RoleParticipant: {
		CapJoinCTF:    true,
		CapJoinTeam:   true,
		CapManageTeam: true,
		CapMessage:    true,
	},
	session.RoleOrganisateur: {
		CapCreateCTF: true,
		CapMessage:   true,
	},
	session.RoleAdministrateur: {
		CapValidateCTF: true,
		CapDisableCTF:  true,
		CapBanUser:     true,
		CapListUsers:   true,
		CapMessage:     true,
	},
}

// Can reports whether the role may exercise the capability.
func Can(role session.Role, cap Capability) bool {
	return capabilities[role][cap]
}

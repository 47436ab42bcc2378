package api

import "time"

// CTFStatus is the lifecycle state used by the list endpoint.
type CTFStatus string

const (
	CTFActive   CTFStatus = "actif"
	CTFPending  CTFStatus = "en_attente"
	CTFInactive CTFStatus = "inactif"
)

// ParticipationFilter selects which historical records the backend returns.
type ParticipationFilter string

const (
	FilterAll      ParticipationFilter = "ALL"
	FilterActive   ParticipationFilter = "ACTIVE"
	FilterInactive ParticipationFilter = "INACTIVE"
)

// CTF is a capture-the-flag event.
type CTF struct {
	ID                 int64  `json:"id"`
	Titre              string `json:"titre"`
	Description        string `json:"description"`
	Lieu               string `json:"lieu"`
	OrganisateurPseudo string `json:"organisateurPseudo"`
	NbVues             int    `json:"nbVues"`
	Statut             string `json:"statut"`
}

// Participation is one historical join record for the current user on a CTF.
// A user who left and rejoined has several records for the same ctfId.
type Participation struct {
	CtfID       int64      `json:"ctfId"`
	CtfTitre    string     `json:"ctfTitre"`
	Pseudo      string     `json:"pseudo"`
	Email       string     `json:"email"`
	JoinedAt    time.Time  `json:"joinedAt"`
	LeftAt      *time.Time `json:"leftAt"`
	CompletedAt *time.Time `json:"completedAt"`
}

// TeamSummary is one entry of the /equipes/all listing.
type TeamSummary struct {
	ID               int64  `json:"equipeId"`
	Nom              string `json:"nomEquipe"`
	ChefEquipeEmail  string `json:"chefEquipeEmail"`
	ChefEquipePseudo string `json:"chefEquipePseudo"`
}

// TeamMember is a member entry in a team detail response.
type TeamMember struct {
	Email  string `json:"email"`
	Pseudo string `json:"pseudo"`
}

// TeamDetails is the full team view. The chief is always present in
// Participants.
type TeamDetails struct {
	ID              int64        `json:"id"`
	Nom             string       `json:"nom"`
	ChefEquipeEmail string       `json:"chefEquipeEmail"`
	Participants    []TeamMember `json:"participants"`
}

// Candidature is a pending request to join a team.
type Candidature struct {
	CandidatureID int64     `json:"candidatureId"`
	TeamID        int64     `json:"equipeId"`
	Email         string    `json:"email"`
	Pseudo        string    `json:"pseudo"`
	Statut        string    `json:"statut"` // EN_ATTENTE, ACCEPTED, REJECTED
	CreatedAt     time.Time `json:"createdAt"`
}

// Conversation is one entry of the conversation listing.
type Conversation struct {
	ID          int64     `json:"conversationId"`
	OtherEmail  string    `json:"otherEmail"`
	OtherPseudo string    `json:"otherPseudo"`
	LastMessage string    `json:"lastMessage"`
	LastAt      time.Time `json:"lastAt"`
	Unread      int       `json:"unread"`
}

// Message is a single direct message inside a conversation.
type Message struct {
	ID          int64     `json:"id"`
	SenderEmail string    `json:"senderEmail"`
	Contenu     string    `json:"contenu"`
	SentAt      time.Time `json:"sentAt"`
}

// ConversationDetails is a conversation with its message history.
type ConversationDetails struct {
	ID          int64     `json:"conversationId"`
	OtherEmail  string    `json:"otherEmail"`
	OtherPseudo string    `json:"otherPseudo"`
	Messages    []Message `json:"messages"`
}

// Comment is a public comment on a CTF page.
type Comment struct {
	Contenu    string    `json:"contenu"`
	UserPseudo string    `json:"userPseudo"`
	Date       time.Time `json:"date"`
}

// User is a platform account as seen by messaging pickers and the admin
// management page. Score is only meaningful for participants.
type User struct {
	Email  string `json:"email"`
	Pseudo string `json:"pseudo"`
	Score  int    `json:"score"`
	Banned bool   `json:"banned"`
}

// UserKind selects a /users/getall listing.
type UserKind string

const (
	KindParticipants  UserKind = "participants"
	KindOrganisateurs UserKind = "organisateurs"
	KindAdmins        UserKind = "admin"
)

// CTFCreationRequest is the organizer's submission for a new CTF, which an
// administrator must validate before it goes live.
type CTFCreationRequest struct {
	Titre       string `json:"titre"`
	Description string `json:"description"`
	Lieu        string `json:"lieu"`
}

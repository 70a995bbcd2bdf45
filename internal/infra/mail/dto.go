package mail

type NewLeadEmailData struct {
	LeadID       string
	ConferenceID string
	Name         string
	Email        string
	Phone        string
	Company      string
	Role         string
	BusinessType string
	Interests    string
	GroupSize    int
	Notes        string
	CreatedAt    string
}

type EmailSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	To       string
}

package domain

type Membership string

const (
	MembershipBronze Membership = "B"
	MembershipSilver Membership = "S"
	MembershipGold   Membership = "G"
)

type Customer struct {
	ID         int64
	UserID     string
	Membership Membership
}

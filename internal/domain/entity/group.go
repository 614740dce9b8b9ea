package entity

import "time"

type Group struct {
	ID          string    `json:"id" firestore:"-"`
	Name        string    `json:"name" firestore:"name"`
	Photo       string    `json:"photo,omitempty" firestore:"photo"`
	Description string    `json:"description,omitempty" firestore:"description"`
	Members     []string  `json:"members" firestore:"members"`
	Admins      []string  `json:"admins" firestore:"admins"`
	CreatedAt   time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt   time.Time `json:"updated_at" firestore:"updatedAt"`
}

func (g *Group) IsMember(userID string) bool {
	return containsString(g.Members, userID)
}

// IsAdmin treats a group without admins as open to every member.
func (g *Group) IsAdmin(userID string) bool {
	if len(g.Admins) == 0 {
		return true
	}
	return containsString(g.Admins, userID)
}

func containsString(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

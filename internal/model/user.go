package model

type User struct {
	ID           string `json:"id"`
	FullName     string `json:"fullName"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	IsAdmin      bool   `json:"isAdmin"`
	IsVerified   bool   `json:"isVerified"`
	Ctime        int64  `json:"ctime"`
	Mtime        int64  `json:"mtime"`
}

// UserPatch holds the fields an admin may change. Nil fields are kept.
type UserPatch struct {
	FullName *string
	IsAdmin  *bool
}

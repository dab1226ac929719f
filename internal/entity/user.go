package entity

// UserLoginData is the identity carried by an access token.
type UserLoginData struct {
	ID       string
	Username string
	Email    string
	Role     string
}

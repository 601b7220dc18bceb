package types

type UserResponse struct {
	ID          uint   `json:"id"`
	Username    string `json:"username"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Confirmed   bool   `json:"confirmed"`
	Role        string `json:"role"`
}

package model

// Client is a guest known to the restaurant. Phone is stored in E.164
// form and is unique. LoyaltyPoints only ever grows.
type Client struct {
	ID            uint64  `json:"id"`
	Name          string  `json:"name"`
	Phone         string  `json:"phone"`
	Email         *string `json:"email"`
	LoyaltyPoints int     `json:"loyalty_points"`
}

// HasEmail reports whether the client can receive e-mail.
func (c *Client) HasEmail() bool {
	return c != nil && c.Email != nil && *c.Email != ""
}

package users

import "time"

// User is a registered account in the directory. Profile fields feed
// the personalized welcome email prompt.
type User struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	Name              string    `json:"name"`
	Country           string    `json:"country"`
	InvestmentGoals   string    `json:"investmentGoals"`
	RiskTolerance     string    `json:"riskTolerance"`
	PreferredIndustry string    `json:"preferredIndustry"`
	CreatedAt         time.Time `json:"createdAt"`
}

// DigestUser is the projection the daily news workflow needs: only
// users with both an email and a name qualify.
type DigestUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

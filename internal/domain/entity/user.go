package entity

import (
	"time"
)

type User struct {
	ID          string    `json:"id" firestore:"id"`
	Name        string    `json:"name" firestore:"name"`
	Email       string    `json:"email" firestore:"email"`
	RatingAvg   float64   `json:"rating_avg" firestore:"ratingAvg"`
	RatingCount int       `json:"rating_count" firestore:"ratingCount"`
	CreatedAt   time.Time `json:"created_at" firestore:"createdAt"`
}

type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}

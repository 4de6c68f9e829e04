package models

import (
	"strings"
	"time"
)

// Lead represents a contact that can receive campaign emails
type Lead struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	FirstName       string    `json:"firstName"`
	LastName        string    `json:"lastName"`
	Phone           string    `json:"phone"`
	PropertyAddress string    `json:"propertyAddress"`
	PropertyPrice   string    `json:"propertyPrice"`
	PropertyType    string    `json:"propertyType"`
	CreatedAt       time.Time `json:"createdAt"`
}

// DisplayName returns "First Last" with surrounding blanks removed
func (l *Lead) DisplayName() string {
	return strings.TrimSpace(l.FirstName + " " + l.LastName)
}

package models

import "time"

// Template is a reusable subject/body pair with {{placeholder}} tokens
type Template struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Default template seeded on migrate and after clear-all
const (
	DefaultTemplateName    = "Default Property"
	DefaultTemplateSubject = "Great News About {{propertyAddress}}"
	DefaultTemplateBody    = `<h1>Hello {{firstName}}!</h1><p>Property: {{propertyAddress}}</p><p>Price: {{propertyPrice}}</p><p><a href="{{zoomLink}}">Join Zoom</a></p>`
)

// DefaultTemplate returns a fresh copy of the seed template
func DefaultTemplate() *Template {
	return &Template{
		Name:    DefaultTemplateName,
		Subject: DefaultTemplateSubject,
		Body:    DefaultTemplateBody,
	}
}

package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrFirstNameRequired = errors.New("First name is required.")
	ErrLastNameRequired  = errors.New("Last name is required.")
	ErrLocationRequired  = errors.New("Location is required.")
)

// Person is the record managed by the people sample resource.
type Person struct {
	ID        string    `json:"id" bson:"_id" mapstructure:"id"`
	FirstName string    `json:"firstName" bson:"first_name" mapstructure:"firstName"`
	LastName  string    `json:"lastName" bson:"last_name" mapstructure:"lastName"`
	Location  string    `json:"location" bson:"location" mapstructure:"location"`
	CreatedAt time.Time `json:"created_at" bson:"created_at" mapstructure:"-"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at" mapstructure:"-"`
}

// NewPersonID generates an identifier for a new person.
func NewPersonID() string {
	return uuid.New().String()
}

// Validate checks that every descriptive field is filled in.
func (p *Person) Validate() error {
	switch {
	case p.FirstName == "":
		return ErrFirstNameRequired
	case p.LastName == "":
		return ErrLastNameRequired
	case p.Location == "":
		return ErrLocationRequired
	}
	return nil
}

// Apply copies the descriptive fields of other onto p, keeping p's identity.
func (p *Person) Apply(other *Person) {
	p.FirstName = other.FirstName
	p.LastName = other.LastName
	p.Location = other.Location
}

// DefaultPeople is the seed data the people resource starts with.
func DefaultPeople() []*Person {
	return []*Person{
		{ID: "1", FirstName: "Daffy", LastName: "Duck", Location: "Missouri"},
		{ID: "2", FirstName: "Minnie", LastName: "Mouse", Location: "Ohio"},
		{ID: "3", FirstName: "Elmer", LastName: "Fudd", Location: "Texas"},
		{ID: "4", FirstName: "Foghorn", LastName: "Leghorn", Location: "South Carolina"},
		{ID: "5", FirstName: "Mother", LastName: "Goose", Location: "New York"},
		{ID: "6", FirstName: "Bugs", LastName: "Bunny", Location: "Colorado"},
	}
}

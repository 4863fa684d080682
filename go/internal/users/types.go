package users

import (
	"github.com/google/uuid"

	"github.com/mcdev12/hackjudge/go/internal/models"
)

// Entry is one staff member in the roster file.
type Entry struct {
	Name  string      `yaml:"name"`
	Email string      `yaml:"email"`
	Role  models.Role `yaml:"role"`
}

// Roster lists everyone who may sign in during the event.
type Roster struct {
	Users []Entry `yaml:"users"`
}

// CurrentUserResponse describes the caller.
type CurrentUserResponse struct {
	User *models.User `json:"user"`
}

// userNamespace derives stable user ids from email addresses so a roster
// can be re-seeded without invalidating issued tokens.
var userNamespace = uuid.MustParse("0b7c4a62-39a1-4f5e-9a0e-5b1d3c7f2e10")

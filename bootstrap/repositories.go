package bootstrap

import (
	"go_branch_chat/platform/database"
	"go_branch_chat/repository"
)

type Repositories struct {
	TreeRepository repository.TreeRepository
}

// NewRepositories falls back to the in-memory store when db is nil.
func NewRepositories(db *database.DB) *Repositories {
	if db == nil {
		return &Repositories{TreeRepository: repository.NewMemoryTreeRepository()}
	}
	return &Repositories{TreeRepository: repository.NewTreeRepository(db.GetDatabase())}
}

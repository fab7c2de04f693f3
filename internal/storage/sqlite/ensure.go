package sqlite

import (
	"github.com/felixgeelhaar/pyquest/internal/auth"
	"github.com/felixgeelhaar/pyquest/internal/outbox"
	"github.com/felixgeelhaar/pyquest/internal/progress"
)

// Ensure SQLite stores implement the storage interfaces.
var (
	_ progress.Store  = (*ProgressStore)(nil)
	_ outbox.Source   = (*ProgressStore)(nil)
	_ auth.Repository = (*AuthStore)(nil)
)

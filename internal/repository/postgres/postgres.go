package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/scheduler-api/internal/repository"
)

type commitmentRepository struct {
	db *sqlx.DB
}

type templateRepository struct {
	db *sqlx.DB
}

type timeOffRepository struct {
	db *sqlx.DB
}

type waitlistRepository struct {
	db *sqlx.DB
}

func NewCommitmentRepository(db *sqlx.DB) repository.CommitmentRepository {
	return &commitmentRepository{db: db}
}

func NewTemplateRepository(db *sqlx.DB) repository.TemplateRepository {
	return &templateRepository{db: db}
}

func NewTimeOffRepository(db *sqlx.DB) repository.TimeOffRepository {
	return &timeOffRepository{db: db}
}

func NewWaitlistRepository(db *sqlx.DB) repository.WaitlistRepository {
	return &waitlistRepository{db: db}
}

package settings

import (
	"context"
	"time"
)

// Override is one admin-edited settings row. Value is a YAML fragment for Key.
type Override struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

type Settings interface {
	List(ctx context.Context) ([]Override, error)
}

package store

import (
	"context"
	"fmt"

	"github.com/amishk599/agregador/internal/model"
)

// Open returns the backend named by driver ("sqlite" or "postgres").
func Open(ctx context.Context, driver, path, databaseURL string) (model.Store, error) {
	switch driver {
	case "", "sqlite":
		s, err := NewSQLiteStore(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := NewPostgresStore(ctx, databaseURL)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

package random

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Generator issues random (v4) uuids.
type Generator struct{}

func New() *Generator {
	return &Generator{}
}

func (g *Generator) GetID(_ context.Context) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("new uuid: %w", err)
	}

	return id.String(), nil
}

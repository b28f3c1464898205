package providers

import (
	"context"

	"retraction-check/models"
)

// Source is a remote reference dataset of retracted publications.
type Source interface {
	// Fetch downloads the complete dataset. Records are returned raw, not normalized.
	Fetch(ctx context.Context) ([]models.ReferenceRecord, error)

	// Name is the human readable label of the dataset (e.g. "Retraction Watch public CSV").
	Name() string

	// Location is the URL the dataset is fetched from.
	Location() string
}

package location

import (
	"context"

	"github.com/mcdev12/hideandseek/go/internal/models"
)

// StaticSource reports one fixed position, for devices without positioning hardware.
type StaticSource struct {
	Coordinate models.Coordinate
}

func (s StaticSource) Watch(ctx context.Context, emit func(models.Coordinate)) error {
	emit(s.Coordinate)
	<-ctx.Done()
	return ctx.Err()
}

// FailingSource fails immediately, like a browser that denied geolocation.
type FailingSource struct {
	Err error
}

func (s FailingSource) Watch(ctx context.Context, emit func(models.Coordinate)) error {
	if s.Err == nil {
		return ErrPositionUnavailable
	}
	return s.Err
}

package services

import (
	"context"
	"strings"

	"github.com/yungbote/fleetscore-backend/internal/data/repos"
	types "github.com/yungbote/fleetscore-backend/internal/domain"
	domainagg "github.com/yungbote/fleetscore-backend/internal/domain/aggregates"
	"github.com/yungbote/fleetscore-backend/internal/pkg/dbctx"
	"github.com/yungbote/fleetscore-backend/internal/pkg/logger"
)

// DriverRegistry is the source of truth for which driver ids exist.
type DriverRegistry interface {
	// RegisterDriver creates the driver or updates its name/active flag.
	RegisterDriver(ctx context.Context, id, name string, active *bool) (*types.Driver, error)
	GetDriver(ctx context.Context, id string) (*types.Driver, error)
	ListDrivers(ctx context.Context) ([]*types.Driver, error)
}

type driverRegistry struct {
	log     *logger.Logger
	drivers repos.DriverRepo
}

func NewDriverRegistry(log *logger.Logger, drivers repos.DriverRepo) DriverRegistry {
	return &driverRegistry{log: log.With("service", "DriverRegistry"), drivers: drivers}
}

func (s *driverRegistry) RegisterDriver(ctx context.Context, id, name string, active *bool) (*types.Driver, error) {
	const op = "Scoring.Drivers.Register"
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)
	if id == "" {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing driver_id", nil)
	}
	if len(id) > 128 {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "driver_id exceeds 128 characters", nil)
	}
	if name == "" {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing name", nil)
	}
	d := &types.Driver{ID: id, Name: name, Active: active == nil || *active}
	dbc := dbctx.Context{Ctx: ctx}
	if err := s.drivers.Upsert(dbc, d); err != nil {
		return nil, domainagg.Wrap(domainagg.CodeStoreFailure, op, err)
	}
	out, err := s.drivers.Get(dbc, id)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeStoreFailure, op, err)
	}
	s.log.Info("Driver registered", "driver_id", id, "active", d.Active)
	return out, nil
}

func (s *driverRegistry) GetDriver(ctx context.Context, id string) (*types.Driver, error) {
	const op = "Scoring.Drivers.Get"
	id = strings.TrimSpace(id)
	d, err := s.drivers.Get(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeStoreFailure, op, err)
	}
	if d == nil {
		return nil, domainagg.DriverNotFound(op, id)
	}
	return d, nil
}

func (s *driverRegistry) ListDrivers(ctx context.Context) ([]*types.Driver, error) {
	const op = "Scoring.Drivers.List"
	rows, err := s.drivers.List(dbctx.Context{Ctx: ctx})
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeStoreFailure, op, err)
	}
	return rows, nil
}

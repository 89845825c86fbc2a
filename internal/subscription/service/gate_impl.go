package service

import (
	"context"

	"github.com/merchantiq/catalogsync/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log  *zap.Logger
	Repo domain.Repository
}

type gate struct {
	log  *zap.Logger
	repo domain.Repository
}

// NewGate builds the read-only quota/plan gate.
func NewGate(p Params) domain.Gate {
	return &gate{
		log:  p.Log.Named("subscription.gate"),
		repo: p.Repo,
	}
}

func (g *gate) CheckAllowed(ctx context.Context, tenantID int64) (domain.Decision, error) {
	sub, err := g.repo.FindByTenant(ctx, tenantID)
	if err != nil {
		return domain.Decision{}, err
	}
	if sub == nil {
		return domain.Decision{Allowed: false, Reason: domain.ReasonNoSubscription}, nil
	}
	if !sub.Status.Usable() {
		return domain.Decision{Allowed: false, Reason: domain.ReasonInactive}, nil
	}
	return domain.Decision{Allowed: true}, nil
}

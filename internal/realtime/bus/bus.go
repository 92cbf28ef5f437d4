package bus

import (
	"context"

	types "github.com/yungbote/fleetscore-backend/internal/domain"
)

// Bus fans committed ledger changes out to every API instance.
type Bus interface {
	Publish(ctx context.Context, change types.ScoreChange) error
	StartForwarder(ctx context.Context, onChange func(c types.ScoreChange)) error
	Close() error
}

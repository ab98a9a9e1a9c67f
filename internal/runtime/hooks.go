package runtime

import (
	"context"
	"time"

	"github.com/messagemind/automaton/pkg/domain"
)

func (e *Engine) base(t domain.EventType, g *domain.Graph, execCtx *domain.ExecutionContext) domain.EventBase {
	return domain.EventBase{
		Timestamp: e.now(),
		Type:      t,
		RunID:     execCtx.RunID,
		GraphID:   g.ID,
	}
}

func (e *Engine) emitNodeEnter(ctx context.Context, g *domain.Graph, execCtx *domain.ExecutionContext, node domain.Node) {
	e.logger.Debug("node enter", "run_id", execCtx.RunID, "node", node.ID, "type", node.Type)
	if e.hooks.OnNodeEnter == nil {
		return
	}
	e.hooks.OnNodeEnter(ctx, &domain.NodeEvent{
		EventBase: e.base(domain.EventNodeEnter, g, execCtx),
		NodeID:    node.ID,
		NodeType:  node.Type,
	})
}

func (e *Engine) emitNodeLeave(ctx context.Context, g *domain.Graph, execCtx *domain.ExecutionContext, node domain.Node) {
	if e.hooks.OnNodeLeave == nil {
		return
	}
	e.hooks.OnNodeLeave(ctx, &domain.NodeEvent{
		EventBase: e.base(domain.EventNodeLeave, g, execCtx),
		NodeID:    node.ID,
		NodeType:  node.Type,
	})
}

func (e *Engine) emitEffect(ctx context.Context, g *domain.Graph, execCtx *domain.ExecutionContext, node domain.Node, effect string, detail any, d time.Duration, err error) {
	if err != nil {
		e.logger.Error("node effect failed", "run_id", execCtx.RunID, "node", node.ID, "effect", effect, "error", err)
	} else {
		e.logger.Debug("node effect", "run_id", execCtx.RunID, "node", node.ID, "effect", effect, "detail", detail)
	}
	if e.hooks.OnEffect == nil {
		return
	}
	e.hooks.OnEffect(ctx, &domain.EffectEvent{
		EventBase: e.base(domain.EventEffect, g, execCtx),
		NodeID:    node.ID,
		NodeType:  node.Type,
		Effect:    effect,
		Detail:    detail,
		Duration:  d,
		Err:       err,
	})
}

func (e *Engine) emitTraversalEnd(ctx context.Context, g *domain.Graph, execCtx *domain.ExecutionContext, res domain.TraversalResult) {
	if e.hooks.OnTraversalEnd == nil {
		return
	}
	e.hooks.OnTraversalEnd(ctx, &domain.TraversalEvent{
		EventBase: e.base(domain.EventTraversalEnd, g, execCtx),
		Result:    res,
	})
}

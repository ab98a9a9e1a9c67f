package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/messagemind/automaton/pkg/domain"
)

// traverse walks a single path from entryID until an end node, a dead end,
// a failed effect or a limit stops it. It never returns an error; the outcome
// is carried by the result.
func (e *Engine) traverse(ctx context.Context, g *domain.Graph, entryID string, execCtx *domain.ExecutionContext) domain.TraversalResult {
	started := e.now()
	res := domain.TraversalResult{EntryNodeID: entryID}
	logger := e.logger.With("run_id", execCtx.RunID, "graph_id", g.ID, "entry", entryID)

	if e.maxDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, e.maxDuration, domain.ErrTraversalLimitExceeded)
		defer cancel()
	}

	finish := func(outcome domain.Outcome, err error) domain.TraversalResult {
		res.Outcome = outcome
		res.Err = err
		if err != nil {
			res.Error = err.Error()
		}
		res.Duration = e.now().Sub(started)
		e.logOutcome(logger, res)
		e.emitTraversalEnd(ctx, g, execCtx, res)
		return res
	}

	nodeID := entryID
	for {
		if ctx.Err() != nil {
			return finish(e.interrupted(ctx, len(res.Visited), started))
		}
		if e.maxSteps > 0 && len(res.Visited) >= e.maxSteps {
			return finish(domain.OutcomeLimitExceeded, &domain.TraversalLimitError{
				MaxSteps: e.maxSteps,
				Steps:    len(res.Visited),
				Elapsed:  e.now().Sub(started),
			})
		}

		node, ok := g.Node(nodeID)
		if !ok {
			return finish(domain.OutcomeDeadEnd, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, nodeID))
		}
		res.Visited = append(res.Visited, node.ID)

		e.emitNodeEnter(ctx, g, execCtx, node)
		next, err := e.visit(ctx, g, node, execCtx, logger)
		e.emitNodeLeave(ctx, g, execCtx, node)

		if err != nil {
			if ctx.Err() != nil {
				return finish(e.interrupted(ctx, len(res.Visited), started))
			}
			return finish(domain.OutcomeFailed, err)
		}
		if node.Type == domain.NodeTypeEnd {
			return finish(domain.OutcomeEnd, nil)
		}
		if next == "" {
			return finish(domain.OutcomeDeadEnd, nil)
		}
		nodeID = next
	}
}

// interrupted classifies a done context: our own deadline is a limit, anything else a cancellation.
func (e *Engine) interrupted(ctx context.Context, steps int, started time.Time) (domain.Outcome, error) {
	if errors.Is(context.Cause(ctx), domain.ErrTraversalLimitExceeded) {
		return domain.OutcomeLimitExceeded, &domain.TraversalLimitError{
			MaxDuration: e.maxDuration,
			Steps:       steps,
			Elapsed:     e.now().Sub(started),
		}
	}
	return domain.OutcomeCanceled, ctx.Err()
}

// visit performs the node's effect and resolves the next node id ("" for none).
func (e *Engine) visit(ctx context.Context, g *domain.Graph, node domain.Node, execCtx *domain.ExecutionContext, logger *slog.Logger) (string, error) {
	switch node.Type {
	case domain.NodeTypeStart:
		return NextNodeID(g, node.ID, ""), nil

	case domain.NodeTypeAction:
		data, _ := node.Data.(domain.ActionData)
		msg := domain.Message{To: execCtx.Email, Subject: e.subject, Text: data.Message}
		started := e.now()
		err := e.sender.Send(ctx, msg)
		e.emitEffect(ctx, g, execCtx, node, domain.EffectSendMessage, msg.To, e.now().Sub(started), err)
		if err != nil {
			return "", &domain.EffectError{NodeID: node.ID, NodeType: node.Type, Err: err}
		}
		logger.Debug("message sent", "node", node.ID, "to", msg.To)
		return NextNodeID(g, node.ID, ""), nil

	case domain.NodeTypeDelay:
		data, _ := node.Data.(domain.DelayData)
		wait, err := DelayDuration(data, e.now())
		if err != nil {
			e.emitEffect(ctx, g, execCtx, node, domain.EffectDelay, nil, 0, err)
			return "", &domain.EffectError{NodeID: node.ID, NodeType: node.Type, Err: err}
		}
		if wait > 0 {
			logger.Debug("delaying", "node", node.ID, "duration", wait)
			if err := e.sleep(ctx, wait); err != nil {
				return "", err
			}
		}
		e.emitEffect(ctx, g, execCtx, node, domain.EffectDelay, wait, wait, nil)
		return NextNodeID(g, node.ID, ""), nil

	case domain.NodeTypeCondition:
		data, _ := node.Data.(domain.ConditionData)
		result := EvaluateCondition(data.Rules, execCtx)
		e.emitEffect(ctx, g, execCtx, node, domain.EffectCondition, result, 0, nil)
		handle := domain.HandleFalse
		if result {
			handle = domain.HandleTrue
		}
		return NextNodeID(g, node.ID, handle), nil

	case domain.NodeTypeEnd:
		return "", nil
	}

	logger.Warn("unknown node type, stopping path", "node", node.ID, "type", node.Type)
	return "", nil
}

func (e *Engine) logOutcome(logger *slog.Logger, res domain.TraversalResult) {
	attrs := []any{"outcome", res.Outcome, "visited", len(res.Visited), "duration", res.Duration}
	switch res.Outcome {
	case domain.OutcomeFailed, domain.OutcomeLimitExceeded:
		logger.Error("traversal aborted", append(attrs, "error", res.Err)...)
	case domain.OutcomeDeadEnd:
		if res.Err != nil {
			attrs = append(attrs, "error", res.Err)
		}
		logger.Debug("traversal reached a dead end", attrs...)
	case domain.OutcomeCanceled:
		logger.Warn("traversal canceled", attrs...)
	default:
		logger.Debug("traversal finished", attrs...)
	}
}
